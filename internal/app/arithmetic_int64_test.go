package app

import (
	"math"
	"testing"
)

func TestAddInt64AndU64Checked(t *testing.T) {
	got, err := addInt64AndU64Checked(42, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 52 {
		t.Fatalf("unexpected sum: got %d want 52", got)
	}
}

func TestAddInt64AndU64Checked_Overflow(t *testing.T) {
	if _, err := addInt64AndU64Checked(math.MaxInt64, 1); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := addInt64AndU64Checked(0, uint64(math.MaxInt64)+1); err == nil {
		t.Fatalf("expected delta overflow error")
	}
}

func TestAddUint64Checked_Overflow(t *testing.T) {
	if got, err := addUint64Checked(7, 8); err != nil || got != 15 {
		t.Fatalf("got %d err %v", got, err)
	}
	if _, err := addUint64Checked(math.MaxUint64, 1); err == nil {
		t.Fatalf("expected overflow error")
	}
}
