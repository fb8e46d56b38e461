// Package timing schedules deferred events on the emulated CPU timeline.
//
// Events are executed by the CPU thread when it advances the clock. Other
// threads can post events too: they land in a mailbox that the CPU thread
// drains, in posting order, before running due events.
package timing

import (
	"container/heap"
	"fmt"
	"sync"
	"sync/atomic"

	"cpemu/emu/log"
)

// FromThread tells ScheduleEvent which thread the caller is running on.
type FromThread uint8

const (
	FromCPU    FromThread = iota // caller is the CPU thread
	FromNonCPU                   // caller is any other thread
	FromAny                      // unknown, handled like FromNonCPU
)

func (f FromThread) String() string {
	switch f {
	case FromCPU:
		return "cpu"
	case FromNonCPU:
		return "non-cpu"
	case FromAny:
		return "any"
	}
	return "?"
}

// Callback is executed on the CPU thread. cyclesLate is how many cycles past
// the scheduled time the event ran.
type Callback func(userdata uint64, cyclesLate int64)

type EventType struct {
	Name string
	cb   Callback
}

type event struct {
	time     int64
	seq      uint64
	typ      *EventType
	userdata uint64
}

type eventQueue []event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	*q = old[:n-1]
	return ev
}

type Scheduler struct {
	types map[string]*EventType

	// CPU thread only.
	queue eventQueue
	seq   uint64

	now atomic.Int64

	// Mailbox for events posted from other threads. Delays are relative to
	// the time the CPU thread picks the event up.
	mu      sync.Mutex
	tsQueue []event

	exceptionCheck atomic.Bool
	checks         atomic.Uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{types: make(map[string]*EventType)}
}

// RegisterEvent registers a named event type. It panics if name is already
// registered.
func (s *Scheduler) RegisterEvent(name string, cb Callback) *EventType {
	if _, ok := s.types[name]; ok {
		panic(fmt.Sprintf("timing: event %q already registered", name))
	}
	et := &EventType{Name: name, cb: cb}
	s.types[name] = et
	return et
}

// UnregisterAllEvents removes every event type and every pending event.
func (s *Scheduler) UnregisterAllEvents() {
	s.types = make(map[string]*EventType)
	s.clear()
}

func (s *Scheduler) clear() {
	s.queue = s.queue[:0]
	s.mu.Lock()
	s.tsQueue = nil
	s.mu.Unlock()
}

// ScheduleEvent schedules ev to run cyclesIntoFuture cycles from now.
func (s *Scheduler) ScheduleEvent(cyclesIntoFuture int64, ev *EventType, userdata uint64, from FromThread) {
	log.ModTiming.DebugZ("schedule event").
		String("name", ev.Name).
		Int64("cycles", cyclesIntoFuture).
		Stringer("from", from).
		End()

	if from == FromCPU {
		s.push(s.now.Load()+cyclesIntoFuture, ev, userdata)
		return
	}

	s.mu.Lock()
	s.tsQueue = append(s.tsQueue, event{time: cyclesIntoFuture, typ: ev, userdata: userdata})
	s.mu.Unlock()
}

func (s *Scheduler) push(time int64, ev *EventType, userdata uint64) {
	s.seq++
	heap.Push(&s.queue, event{time: time, seq: s.seq, typ: ev, userdata: userdata})
}

// RemoveEvent removes all pending CPU thread events of type ev.
func (s *Scheduler) RemoveEvent(ev *EventType) {
	q := s.queue[:0]
	for _, e := range s.queue {
		if e.typ != ev {
			q = append(q, e)
		}
	}
	s.queue = q
	heap.Init(&s.queue)
}

func (s *Scheduler) moveEvents() {
	s.mu.Lock()
	ts := s.tsQueue
	s.tsQueue = nil
	s.mu.Unlock()

	now := s.now.Load()
	for _, e := range ts {
		s.push(now+e.time, e.typ, e.userdata)
	}
}

// Advance moves the clock forward and runs all due events. It must be called
// from the CPU thread.
func (s *Scheduler) Advance(cycles int64) {
	now := s.now.Add(cycles)
	s.moveEvents()

	for len(s.queue) > 0 && s.queue[0].time <= now {
		e := heap.Pop(&s.queue).(event)
		e.typ.cb(e.userdata, now-e.time)
		// Callbacks may have posted events from other threads.
		s.moveEvents()
	}
}

// Now returns the current time in CPU cycles.
func (s *Scheduler) Now() int64 { return s.now.Load() }

// Pending returns the number of events not yet executed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	n := len(s.tsQueue)
	s.mu.Unlock()
	return n + len(s.queue)
}

// ForceExceptionCheck asks the CPU to check for pending exceptions within the
// given number of cycles, instead of waiting for the end of its time slice.
// This emulator core checks at the next opportunity, whatever the delay.
func (s *Scheduler) ForceExceptionCheck(int64) {
	s.checks.Add(1)
	s.exceptionCheck.Store(true)
}

// TakeExceptionCheck reports whether an exception check was requested since
// the last call, and clears the request.
func (s *Scheduler) TakeExceptionCheck() bool {
	return s.exceptionCheck.Swap(false)
}

// ExceptionChecks returns the total number of exception checks requested.
func (s *Scheduler) ExceptionChecks() uint64 { return s.checks.Load() }

// Reset clears pending events and resets the clock. Event types stay
// registered.
func (s *Scheduler) Reset() {
	s.clear()
	s.seq = 0
	s.now.Store(0)
	s.exceptionCheck.Store(false)
	s.checks.Store(0)
}

// AddLogContext implements log.Context.
func (s *Scheduler) AddLogContext(z *log.EntryZ) {
	z.Int64("clk", s.now.Load())
}
