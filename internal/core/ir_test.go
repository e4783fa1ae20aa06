package core

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	if err := mustLower(t, "+[>[-]<]").Validate(); err != nil {
		t.Errorf("lowered program failed validation: %v", err)
	}
	if err := Optimise(mustLower(t, "+[>[-]<]")).Validate(); err != nil {
		t.Errorf("optimised program failed validation: %v", err)
	}

	bad := []Program{
		// never closed
		{Jz(2), Out()},
		// JNZ points past its JZ
		{Jz(2), Jnz(5)},
		// JZ does not fall through past its JNZ
		{Jz(3), Jnz(0), Jnz(0)},
		// closes the outer loop first
		{Jz(5), Jz(4), Jnz(0), Jnz(1)},
	}
	for i, p := range bad {
		if p.Validate() == nil {
			t.Errorf("bad program %d passed validation: %v", i, p)
		}
	}
}

func TestDumpIndentsLoops(t *testing.T) {
	out := mustLower(t, "+[>[-]<]").Dump()

	for _, want := range []string{
		"000: ADD   +1",
		"001: JZ",
		"002:   SHIFT +1",
		"003:   JZ",
		"004:     ADD   -1",
		"005:   JNZ",
		"007: JNZ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
