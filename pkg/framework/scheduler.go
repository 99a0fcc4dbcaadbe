package framework

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Scheduler is a single-threaded cooperative run-loop.
// Every task owns a goroutine, but only one of them holds the processor
// at any moment: the loop resumes a task and waits until that task
// suspends (or returns) before it resumes the next one. Ready tasks are
// resumed round-robin in the order they became ready.
type Scheduler struct {
	Clock    Clock
	MaxTasks int

	tasks     []*task
	readyHead *task
	readyTail *task
	live      int
	started   bool
	stopping  bool
	ctx       context.Context
	errs      AggregatedError
	lock      sync.Mutex

	yieldCh  chan *task
	wakeUpCh chan struct{}
}

type taskState int

const (
	taskReady taskState = iota
	taskRunning
	taskWaiting
	taskFinished
)

func (s taskState) String() string {
	switch s {
	case taskReady:
		return "ready"
	case taskRunning:
		return "running"
	case taskWaiting:
		return "waiting"
	case taskFinished:
		return "finished"
	}
	return "unknown"
}

type wakeReason int

const (
	wakeNone wakeReason = iota
	wakeStart
	wakeYield
	wakeTimer
	wakeTimeout
	wakeSignaled
	wakeStop
)

type task struct {
	name  string
	body  Task
	sched *Scheduler

	state    taskState
	reason   wakeReason
	pending  wakeReason
	deadline time.Duration
	blocking bool
	resumes  uint64
	err      error

	readyNext *task
	waitNext  *task
	waitQueue *WaitQueue

	resumeCh chan wakeReason
}

// NewScheduler creates a Scheduler driven by clock.
// A nil clock selects a MonotonicClock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	return &Scheduler{
		Clock:    clock,
		MaxTasks: DefaultMaxTasks,
		yieldCh:  make(chan *task),
		wakeUpCh: make(chan struct{}, 1),
	}
}

// Add adds SchedulerAdders and stops at the first failure.
func (s *Scheduler) Add(adders ...SchedulerAdder) error {
	for _, adder := range adders {
		if err := adder.AddToScheduler(s); err != nil {
			return err
		}
	}
	return nil
}

// Spawn registers a task. Tasks can only be spawned before the
// scheduler starts, and at most MaxTasks of them.
func (s *Scheduler) Spawn(name string, body Task) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch {
	case body == nil:
		return &SpawnError{Task: name, Err: errors.New("nil task")}
	case name == "":
		return &SpawnError{Task: name, Err: errors.New("empty name")}
	case s.started:
		return &SpawnError{Task: name, Err: ErrStarted}
	case len(s.tasks) >= s.maxTasks():
		return &SpawnError{Task: name, Err: ErrTaskPoolFull}
	}
	for _, t := range s.tasks {
		if t.name == name {
			return &SpawnError{Task: name, Err: errors.New("duplicated name")}
		}
	}
	t := &task{
		name:     name,
		body:     body,
		sched:    s,
		resumeCh: make(chan wakeReason, 1),
	}
	s.tasks = append(s.tasks, t)
	s.makeReady(t, wakeStart)
	glog.V(4).Infof("spawn Task[%s]", name)
	return nil
}

// Run runs tasks until ctx is done or all tasks return. Remaining tasks
// are then shut down.
func (s *Scheduler) Run(ctx context.Context) error {
	s.start(ctx)
	err := s.loop(ctx, 0, false)
	var errs AggregatedError
	return errs.Add(err, s.Shutdown()).Aggregate()
}

// RunOrFail is intended to be used in main to simply run the scheduler.
func (s *Scheduler) RunOrFail() {
	if err := s.Run(context.TODO()); err != nil {
		log.Fatalln(err)
	}
}

// RunUntil runs tasks until the clock reaches t and returns with the
// tasks parked, so a later call continues where this one stopped.
// Timers due at exactly t are processed.
func (s *Scheduler) RunUntil(ctx context.Context, t time.Duration) error {
	s.start(ctx)
	return s.loop(ctx, t, true)
}

// RunFor is RunUntil relative to the current clock time.
func (s *Scheduler) RunFor(ctx context.Context, d time.Duration) error {
	return s.RunUntil(ctx, s.Clock.Now()+d)
}

// Shutdown resumes every unfinished task with ErrStopped and waits for
// it to return. It returns errors reported by tasks.
func (s *Scheduler) Shutdown() error {
	s.lock.Lock()
	s.stopping = true
	if !s.started {
		s.started = true
		s.lock.Unlock()
		return nil
	}
	s.lock.Unlock()
	for _, t := range s.tasks {
		s.lock.Lock()
		finished := t.state == taskFinished
		if !finished {
			s.unlinkReady(t)
		}
		s.lock.Unlock()
		if !finished {
			s.dispatch(t, wakeStop)
		}
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.errs.Aggregate()
}

// Wake kicks an idle run-loop, e.g. after a task was made ready by a
// goroutine outside of the scheduler.
func (s *Scheduler) Wake() {
	select {
	case s.wakeUpCh <- struct{}{}:
	default:
	}
}

// Tasks returns a snapshot of all spawned tasks.
func (s *Scheduler) Tasks() []TaskInfo {
	s.lock.Lock()
	defer s.lock.Unlock()
	infos := make([]TaskInfo, len(s.tasks))
	for n, t := range s.tasks {
		infos[n] = TaskInfo{Name: t.name, State: t.state.String(), Resumes: t.resumes}
	}
	return infos
}

func (s *Scheduler) maxTasks() int {
	if s.MaxTasks <= 0 {
		return DefaultMaxTasks
	}
	return s.MaxTasks
}

func (s *Scheduler) start(ctx context.Context) {
	s.lock.Lock()
	if s.started {
		s.lock.Unlock()
		return
	}
	s.started, s.ctx, s.live = true, ctx, len(s.tasks)
	tasks := s.tasks
	s.lock.Unlock()
	for _, t := range tasks {
		go s.runTask(t)
	}
}

func (s *Scheduler) runTask(t *task) {
	var err error
	if reason := <-t.resumeCh; reason == wakeStop {
		err = ErrStopped
	} else {
		glog.V(4).Infof("Task[%s] started", t.name)
		err = t.body.RunTask(&taskContext{t: t})
	}
	s.lock.Lock()
	t.state, t.err = taskFinished, err
	s.lock.Unlock()
	glog.V(4).Infof("Task[%s] stopped", t.name)
	s.yieldCh <- t
}

func (s *Scheduler) loop(ctx context.Context, until time.Duration, bounded bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t, reason := s.popReady(); t != nil {
			s.dispatch(t, reason)
			continue
		}
		s.lock.Lock()
		live := s.live
		s.lock.Unlock()
		if live == 0 {
			return nil
		}
		at, ok := s.nextDeadline()
		switch {
		case bounded && (!ok || at > until):
			if err := s.Clock.WaitUntil(ctx, until, s.wakeUpCh); err != nil {
				return err
			}
			if s.Clock.Now() >= until && !s.hasReady() {
				return nil
			}
		case !ok:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wakeUpCh:
			}
		default:
			if err := s.Clock.WaitUntil(ctx, at, s.wakeUpCh); err != nil {
				return err
			}
			s.expireTimers()
		}
	}
}

// dispatch hands the processor to t and takes it back when t suspends.
func (s *Scheduler) dispatch(t *task, reason wakeReason) {
	s.lock.Lock()
	t.state = taskRunning
	t.resumes++
	s.lock.Unlock()
	t.resumeCh <- reason
	<-s.yieldCh

	s.lock.Lock()
	defer s.lock.Unlock()
	if t.state != taskFinished {
		return
	}
	s.live--
	if t.err != nil && !errors.Is(t.err, ErrStopped) {
		glog.Errorf("task %s: %v", t.name, t.err)
		s.errs.Add(fmt.Errorf("task %s: %w", t.name, t.err))
		t.err = nil
	}
}

// park gives up the processor. A zero deadline re-queues the task as
// ready (yield), otherwise the task waits until the deadline or a wake.
func (s *Scheduler) park(t *task, deadline time.Duration, blocking bool) wakeReason {
	s.lock.Lock()
	if s.stopping {
		s.lock.Unlock()
		return wakeStop
	}
	switch {
	case t.pending != wakeNone:
		s.makeReady(t, t.pending)
		t.pending = wakeNone
	case deadline == 0:
		s.makeReady(t, wakeYield)
	default:
		t.state, t.deadline, t.blocking = taskWaiting, deadline, blocking
	}
	s.lock.Unlock()
	s.yieldCh <- t
	return <-t.resumeCh
}

// wake is called by WaitQueue with its lock held.
func (s *Scheduler) wake(t *task, reason wakeReason) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch t.state {
	case taskWaiting:
		s.makeReady(t, reason)
		s.Wake()
		return true
	case taskRunning:
		// signaled between joining the queue and parking.
		if t.pending == wakeNone {
			t.pending = reason
			return true
		}
	}
	return false
}

func (s *Scheduler) expireTimers() {
	now := s.Clock.Now()
	s.lock.Lock()
	defer s.lock.Unlock()
	for {
		var next *task
		for _, t := range s.tasks {
			if t.state == taskWaiting && t.deadline <= now &&
				(next == nil || t.deadline < next.deadline) {
				next = t
			}
		}
		if next == nil {
			return
		}
		if next.blocking {
			s.makeReady(next, wakeTimeout)
		} else {
			s.makeReady(next, wakeTimer)
		}
	}
}

func (s *Scheduler) nextDeadline() (at time.Duration, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, t := range s.tasks {
		if t.state == taskWaiting && (!ok || t.deadline < at) {
			at, ok = t.deadline, true
		}
	}
	return
}

// makeReady must be called with lock held.
func (s *Scheduler) makeReady(t *task, reason wakeReason) {
	t.state, t.reason, t.readyNext = taskReady, reason, nil
	if s.readyHead == nil {
		s.readyHead = t
	} else {
		s.readyTail.readyNext = t
	}
	s.readyTail = t
}

// unlinkReady must be called with lock held.
func (s *Scheduler) unlinkReady(t *task) {
	var prev *task
	for cur := s.readyHead; cur != nil; prev, cur = cur, cur.readyNext {
		if cur != t {
			continue
		}
		if prev == nil {
			s.readyHead = cur.readyNext
		} else {
			prev.readyNext = cur.readyNext
		}
		if s.readyTail == cur {
			s.readyTail = prev
		}
		cur.readyNext = nil
		return
	}
}

func (s *Scheduler) popReady() (*task, wakeReason) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t := s.readyHead
	if t == nil {
		return nil, wakeNone
	}
	s.readyHead = t.readyNext
	if s.readyHead == nil {
		s.readyTail = nil
	}
	t.readyNext = nil
	return t, t.reason
}

func (s *Scheduler) hasReady() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.readyHead != nil
}

type taskContext struct {
	t *task
}

func (c *taskContext) Name() string {
	return c.t.name
}

func (c *taskContext) Now() time.Duration {
	return c.t.sched.Clock.Now()
}

func (c *taskContext) Context() context.Context {
	return c.t.sched.ctx
}

func (c *taskContext) Sleep(d time.Duration) error {
	s := c.t.sched
	var deadline time.Duration
	if d > 0 {
		deadline = s.Clock.Now() + d
	}
	if s.park(c.t, deadline, false) == wakeStop {
		return ErrStopped
	}
	return nil
}

func (c *taskContext) Wait(q *WaitQueue, timeout time.Duration) error {
	if timeout <= 0 {
		return ErrTimeout
	}
	t, s := c.t, c.t.sched
	q.push(t)
	q.L.Unlock()
	reason := s.park(t, s.Clock.Now()+timeout, true)
	q.L.Lock()
	if t.waitQueue == q {
		q.remove(t)
	}
	switch reason {
	case wakeSignaled:
		return nil
	case wakeStop:
		return ErrStopped
	}
	return ErrTimeout
}
