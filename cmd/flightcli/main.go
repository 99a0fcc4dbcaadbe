package main

import (
	"github.com/robotalks/avionics.go/pkg/cli/sh"
	"github.com/robotalks/avionics.go/pkg/flight"

	_ "github.com/robotalks/avionics.go/pkg/cli/cmds/bench"
)

func init() {
	flight.SetupFlags()
}

func main() {
	sh.Main()
}
