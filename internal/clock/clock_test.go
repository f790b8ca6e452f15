package clock

import (
	"testing"
	"time"
)

func TestSystemClockUsesLocation(t *testing.T) {
	t.Parallel()

	kyiv := time.FixedZone("EET", 2*60*60)
	clk := New(kyiv)

	before := time.Now().Add(-time.Second)
	got := clk.Now()
	after := time.Now().Add(time.Second)

	if got.Location() != kyiv {
		t.Fatalf("expected location %v, got %v", kyiv, got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestSystemClockDefaultsToLocal(t *testing.T) {
	t.Parallel()

	if got := New(nil).Now().Location(); got != time.Local {
		t.Fatalf("expected time.Local, got %v", got)
	}
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	clk := Fixed(at)
	if !clk.Now().Equal(at) || !clk.Now().Equal(clk.Now()) {
		t.Fatalf("expected fixed time %v, got %v", at, clk.Now())
	}
}
