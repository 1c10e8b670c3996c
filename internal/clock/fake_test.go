package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func TestFake_TimerFiresAtDeadline(t *testing.T) {
	c := NewFake(epoch)
	tm := c.NewTimer(time.Second)

	c.Advance(999 * time.Millisecond)
	select {
	case <-tm.C():
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case got := <-tm.C():
		if !got.Equal(epoch.Add(time.Second)) {
			t.Errorf("fired at %v, want %v", got, epoch.Add(time.Second))
		}
	default:
		t.Fatal("timer did not fire at deadline")
	}
	if c.Waiters() != 0 {
		t.Errorf("expected fired timer to be disarmed, got %d waiters", c.Waiters())
	}
}

func TestFake_StopAndReset(t *testing.T) {
	c := NewFake(epoch)
	tm := c.NewTimer(time.Second)
	if !tm.Stop() {
		t.Fatal("Stop on active timer should return true")
	}
	if tm.Stop() {
		t.Fatal("second Stop should return false")
	}

	c.Advance(5 * time.Second)
	select {
	case <-tm.C():
		t.Fatal("stopped timer fired")
	default:
	}

	tm.Reset(time.Second)
	c.Advance(time.Second)
	select {
	case <-tm.C():
	default:
		t.Fatal("reset timer did not fire")
	}
}

func TestFake_TickerRepeats(t *testing.T) {
	c := NewFake(epoch)
	tk := c.NewTicker(time.Minute)
	defer tk.Stop()

	for i := range 3 {
		c.Advance(time.Minute)
		select {
		case <-tk.C():
		default:
			t.Fatalf("tick %d missing", i)
		}
	}
}

func TestNewStoppedTimer(t *testing.T) {
	c := NewFake(epoch)
	tm := NewStoppedTimer(c)
	c.Advance(2 * time.Hour)
	select {
	case <-tm.C():
		t.Fatal("stopped timer fired")
	default:
	}
	if c.Waiters() != 0 {
		t.Errorf("expected no waiters, got %d", c.Waiters())
	}
}
