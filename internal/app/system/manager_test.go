package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	name    string
	events  *[]string
	failOn  string
	stopped bool
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(context.Context) error {
	if s.failOn == "start" {
		return errors.New("start failed")
	}
	*s.events = append(*s.events, "start:"+s.name)
	return nil
}

func (s *recordingService) Stop(context.Context) error {
	s.stopped = true
	*s.events = append(*s.events, "stop:"+s.name)
	if s.failOn == "stop" {
		return errors.New("stop failed")
	}
	return nil
}

func TestStartStopOrdering(t *testing.T) {
	var events []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordingService{name: name, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestStartFailureRollsBack(t *testing.T) {
	var events []string
	m := NewManager()
	first := &recordingService{name: "first", events: &events}
	second := &recordingService{name: "second", events: &events, failOn: "start"}
	for _, svc := range []*recordingService{first, second} {
		if err := m.Register(svc); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start failure")
	}
	if !first.stopped {
		t.Fatal("previously started service was not rolled back")
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	var events []string
	m := NewManager()
	if err := m.Register(&recordingService{name: "dup", events: &events}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(&recordingService{name: "dup", events: &events}); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestRegisterAfterStart(t *testing.T) {
	var events []string
	m := NewManager()
	if err := m.Register(&recordingService{name: "a", events: &events}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Register(&recordingService{name: "late", events: &events}); err == nil {
		t.Fatal("expected error registering after start")
	}
}

func TestStopReturnsFirstError(t *testing.T) {
	var events []string
	m := NewManager()
	for _, svc := range []*recordingService{
		{name: "a", events: &events},
		{name: "b", events: &events, failOn: "stop"},
		{name: "c", events: &events},
	} {
		if err := m.Register(svc); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := m.Stop(ctx)
	if err == nil {
		t.Fatal("expected stop error")
	}
	// Every service still got its Stop call.
	if len(events) != 6 {
		t.Fatalf("events = %v", events)
	}
}
