package market

import (
	"math"
	"testing"
)

func TestNewGrid_Inclusive(t *testing.T) {
	g, err := NewGrid(350, 500, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 151 {
		t.Fatalf("expected 151 points, got %d", g.Len())
	}
	if g.Min() != 350 || math.Abs(g.Max()-500) > 1e-9 {
		t.Fatalf("unexpected bounds: [%f, %f]", g.Min(), g.Max())
	}
	if g.Step() != 1 {
		t.Fatalf("unexpected step: %f", g.Step())
	}
}

func TestNewGrid_FractionalStep(t *testing.T) {
	g, err := NewGrid(379, 381, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 41 {
		t.Fatalf("expected 41 points, got %d", g.Len())
	}
	for i := 1; i < g.Len(); i++ {
		d := g.Prices()[i] - g.Prices()[i-1]
		if math.Abs(d-0.05) > 1e-9 {
			t.Fatalf("uneven spacing at %d: %f", i, d)
		}
	}
}

func TestNewGrid_Invalid(t *testing.T) {
	if _, err := NewGrid(500, 350, 1); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for inverted bounds, got %v", err)
	}
	if _, err := NewGrid(350, 500, 0); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for zero step, got %v", err)
	}
	if _, err := NewGrid(400, 400, 1); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for empty range, got %v", err)
	}
}
