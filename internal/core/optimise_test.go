package core

import "testing"

func opsEqual(a, b Program) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Arg != b[i].Arg {
			return false
		}
	}
	return true
}

func TestPeepholeClearLoops(t *testing.T) {
	for _, src := range []string{"[-]", "[+]"} {
		got := peepholeLoops(mustLower(t, src))
		if !opsEqual(got, Program{Zero()}) {
			t.Errorf("peepholeLoops(%q) = %v, want [ZERO]", src, got)
		}
	}

	// [--] is not a clear loop and must survive untouched.
	if got := peepholeLoops(mustLower(t, "[--]")); len(got) != 3 {
		t.Errorf("peepholeLoops([--]) = %v, want 3 ops", got)
	}
}

func TestPeepholeEmptyLoops(t *testing.T) {
	got := peepholeLoops(mustLower(t, "+[]"))
	if !opsEqual(got, Program{Add(1)}) {
		t.Errorf("peepholeLoops(+[]) = %v, want [ADD +1]", got)
	}
}

func TestPeepholeDisabledAtO0(t *testing.T) {
	got := OptimiseWithLevel(mustLower(t, "[-]"), O0)
	want := Program{Jz(3), Add(-1), Jnz(0)}
	if !opsEqual(got, want) {
		t.Errorf("O0 IR for [-] = %v, want %v", got, want)
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name string
		in   Program
		want Program
	}{
		{"cancel", Program{Add(3), Add(-3), Shift(2), Shift(-1)}, Program{Shift(1)}},
		{"fold runs", Program{Add(1), Add(2), Add(3)}, Program{Add(6)}},
		{"wrap to byte range", Program{Add(200), Add(200)}, Program{Add(144)}},
		{"keep io boundaries", Program{Add(1), Out(), Add(1)}, Program{Add(1), Out(), Add(1)}},
	}

	for _, tt := range tests {
		if got := coalesce(tt.in); !opsEqual(got, tt.want) {
			t.Errorf("%s: coalesce = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOptimiseRetargetsJumps(t *testing.T) {
	// The [-] in the middle collapses to ZERO, shifting every index after
	// it; the surrounding loop's targets must follow.
	ops := Optimise(mustLower(t, "+[>[-]<-]"))
	checkBrackets(t, ops)

	zeros := 0
	for _, op := range ops {
		if op.Kind == OpZero {
			zeros++
		}
	}
	if zeros != 1 {
		t.Errorf("got %d ZERO ops, want 1", zeros)
	}
}

func TestOptimisePassesInteract(t *testing.T) {
	// +- cancels, which exposes an empty loop for the next round's
	// peephole to remove.
	got := Optimise(mustLower(t, "+[+-]."))
	if !opsEqual(got, Program{Add(1), Out()}) {
		t.Errorf("got %v, want [ADD +1, OUT]", got)
	}
}

func TestOptimiseIdempotent(t *testing.T) {
	ops := Optimise(mustLower(t, "+[>[-]+-<-][]>++<<"))
	again := Optimise(ops)
	if !opsEqual(ops, again) {
		t.Errorf("Optimise not idempotent:\n first: %v\nsecond: %v", ops, again)
	}
}
