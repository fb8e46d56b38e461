package timing

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type firing struct {
	Name     string
	Userdata uint64
	Late     int64
}

type recorder struct {
	mu  sync.Mutex
	got []firing
}

func (r *recorder) cb(name string) Callback {
	return func(userdata uint64, late int64) {
		r.mu.Lock()
		r.got = append(r.got, firing{name, userdata, late})
		r.mu.Unlock()
	}
}

func TestScheduleOrder(t *testing.T) {
	s := NewScheduler()
	var rec recorder
	a := s.RegisterEvent("a", rec.cb("a"))
	b := s.RegisterEvent("b", rec.cb("b"))

	s.ScheduleEvent(10, a, 1, FromCPU)
	s.ScheduleEvent(5, b, 2, FromCPU)
	s.ScheduleEvent(10, b, 3, FromCPU)
	s.ScheduleEvent(20, a, 4, FromCPU)

	s.Advance(4)
	if len(rec.got) != 0 {
		t.Fatalf("events ran too early: %v", rec.got)
	}

	s.Advance(8)
	want := []firing{
		{"b", 2, 7},
		{"a", 1, 2},
		{"b", 3, 2},
	}
	if diff := cmp.Diff(want, rec.got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if s.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", s.Pending())
	}
	if s.Now() != 12 {
		t.Errorf("Now() = %d, want 12", s.Now())
	}
}

func TestScheduleFromNonCPU(t *testing.T) {
	s := NewScheduler()
	var rec recorder
	ev := s.RegisterEvent("ev", rec.cb("ev"))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ScheduleEvent(0, ev, uint64(i), FromNonCPU)
		}()
	}
	wg.Wait()

	if s.Pending() != 8 {
		t.Fatalf("Pending() = %d, want 8", s.Pending())
	}
	s.Advance(0)
	if len(rec.got) != 8 {
		t.Fatalf("got %d events, want 8", len(rec.got))
	}
}

func TestNonCPUOrderPreserved(t *testing.T) {
	s := NewScheduler()
	var rec recorder
	ev := s.RegisterEvent("ev", rec.cb("ev"))

	for i := range 4 {
		s.ScheduleEvent(0, ev, uint64(i), FromNonCPU)
	}
	s.Advance(1)

	want := []firing{{"ev", 0, 1}, {"ev", 1, 1}, {"ev", 2, 1}, {"ev", 3, 1}}
	if diff := cmp.Diff(want, rec.got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestCallbackReschedules(t *testing.T) {
	s := NewScheduler()
	count := 0
	var ev *EventType
	ev = s.RegisterEvent("tick", func(userdata uint64, _ int64) {
		count++
		if userdata > 0 {
			s.ScheduleEvent(0, ev, userdata-1, FromNonCPU)
		}
	})
	s.ScheduleEvent(0, ev, 3, FromCPU)
	s.Advance(0)
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
}

func TestRemoveEvent(t *testing.T) {
	s := NewScheduler()
	var rec recorder
	a := s.RegisterEvent("a", rec.cb("a"))
	b := s.RegisterEvent("b", rec.cb("b"))
	s.ScheduleEvent(1, a, 0, FromCPU)
	s.ScheduleEvent(2, b, 0, FromCPU)
	s.ScheduleEvent(3, a, 0, FromCPU)
	s.RemoveEvent(a)
	s.Advance(10)
	want := []firing{{"b", 0, 8}}
	if diff := cmp.Diff(want, rec.got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	s := NewScheduler()
	s.RegisterEvent("a", func(uint64, int64) {})
	defer func() {
		if recover() == nil {
			t.Error("second RegisterEvent should panic")
		}
	}()
	s.RegisterEvent("a", func(uint64, int64) {})
}

func TestExceptionCheck(t *testing.T) {
	s := NewScheduler()
	if s.TakeExceptionCheck() {
		t.Fatal("no exception check requested yet")
	}
	s.ForceExceptionCheck(0)
	s.ForceExceptionCheck(100)
	if !s.TakeExceptionCheck() {
		t.Fatal("exception check requested")
	}
	if s.TakeExceptionCheck() {
		t.Fatal("exception check already taken")
	}
	if s.ExceptionChecks() != 2 {
		t.Errorf("ExceptionChecks() = %d, want 2", s.ExceptionChecks())
	}

	s.Reset()
	if s.ExceptionChecks() != 0 || s.Now() != 0 {
		t.Errorf("Reset didn't clear the scheduler")
	}
}
