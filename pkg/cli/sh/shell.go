// Package sh provides an interactive bench shell running the flight core
// on a virtual clock.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/flight"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Config  *flight.Config
	Options BenchOptions
	Bench   *Bench
}

const shellKey = "$shell"

var (
	// flags

	evalOnly    bool
	outputJSON  bool
	defaultOpts = BenchOptions{ClimbRate: 50, Apogee: 1500, Noise: 0.05, Seed: 1}

	// commands
	commands = []*ishell.Cmd{
		&ResetCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.Func("climb-rate", "Simulated climb rate (m/s).", parseFloat32(&defaultOpts.ClimbRate))
	flag.Func("apogee", "Simulated apogee (m).", parseFloat32(&defaultOpts.Apogee))
	flag.Func("noise", "Simulated barometer noise (hPa).", parseFloat32(&defaultOpts.Noise))
	flag.Int64Var(&defaultOpts.Seed, "seed", defaultOpts.Seed, "Seed of simulated noise.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *flight.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:   ishell.New(),
		Config:  conf,
		Options: defaultOpts,
	}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Reset replaces the bench with a fresh one.
func (s *Shell) Reset() error {
	if err := s.resetBench(); err != nil {
		return err
	}
	s.updatePrompt()
	return nil
}

func (s *Shell) resetBench() error {
	if s.Bench != nil {
		if err := s.Bench.Close(); err != nil {
			glog.Errorf("close bench: %v", err)
		}
		s.Bench = nil
	}
	bench, err := NewBench(s.Config, s.Options)
	if err != nil {
		return err
	}
	s.Bench = bench
	return nil
}

func (s *Shell) updatePrompt() {
	s.Shell.SetPrompt(fmt.Sprintf("[T+%.3fs] > ", s.Bench.Now().Seconds()))
}

// WithBench wraps command func requires a bench.
func WithBench(fn func(c *ishell.Context, b *Bench)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Bench == nil {
			if err := s.Reset(); err != nil {
				c.Err(err)
				return
			}
		}
		fn(c, s.Bench)
		s.updatePrompt()
	}
}

// Output prints v as JSON in JSON mode, otherwise calls text.
func Output(c *ishell.Context, v interface{}, text func()) {
	if !ShellFrom(c).OutputJSON {
		text()
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Reset(); err != nil {
		log.Fatalln(err)
	}
	defer func() { s.Bench.Close() }()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ResetCmd restarts the bench from T+0.
var ResetCmd = ishell.Cmd{
	Name: "reset",
	Help: "",
	Func: func(c *ishell.Context) {
		if err := ShellFrom(c).Reset(); err != nil {
			c.Err(err)
		}
	},
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(flight.Default()).Run(flag.Args()...)
}
