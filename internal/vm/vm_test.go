package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lcox74/bfjit/internal/core"
)

// helloWorld is the classic Hello World program.
const helloWorld = `++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.`

func compile(t *testing.T, src string, level core.OptLevel) core.Program {
	t.Helper()
	ops, err := core.Lower(core.Tokenize([]byte(src)))
	if err != nil {
		t.Fatalf("Lower(%q) failed: %v", src, err)
	}
	return core.OptimiseWithLevel(ops, level)
}

func runVM(t *testing.T, src, input string, level core.OptLevel) string {
	t.Helper()
	var out bytes.Buffer
	v := NewVM(WithInput(strings.NewReader(input)), WithOutput(&out))
	if err := v.Run(compile(t, src, level)); err != nil {
		t.Fatalf("Run(%q) failed: %v", src, err)
	}
	return out.String()
}

func TestRunPrograms(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{"cell mult", "++++++++[>++++++++<-]>+.", "", "A"},
		{"nested loops", "+++++[>+++++[>++<-]<-]>>.", "", "2"},
		{"echo", ",.", "Z", "Z"},
		{"clear loop", "+[-]+.", "", "\x01"},
		{"move add", "++>+++<[->+<]>.", "", "\x05"},
		{"hello world", helloWorld, "", "Hello World!\n"},
	}

	for _, tt := range tests {
		// Every program must behave the same with and without the
		// zeroing peephole.
		for _, level := range []core.OptLevel{core.O0, core.O1, core.O2} {
			if got := runVM(t, tt.src, tt.input, level); got != tt.want {
				t.Errorf("%s at O%d: got %q, want %q", tt.name, level, got, tt.want)
			}
		}
	}
}

func TestEOFBehavior(t *testing.T) {
	tests := []struct {
		behavior EOFBehavior
		want     byte
	}{
		{EOFMinusOne, 255},
		{EOFZero, 0},
		{EOFNoChange, 7},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		v := NewVM(
			WithInput(strings.NewReader("")),
			WithOutput(&out),
			WithEOFBehavior(tt.behavior),
		)
		// Preload the cell with 7, then read at EOF and print.
		if err := v.Run(compile(t, "+++++++,.", core.O2)); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if got := out.Bytes(); len(got) != 1 || got[0] != tt.want {
			t.Errorf("behavior %d: got %v, want [%d]", tt.behavior, got, tt.want)
		}
	}
}

func TestPointerOutOfBounds(t *testing.T) {
	for _, src := range []string{"<", strings.Repeat(">", core.TapeSize)} {
		v := NewVM(WithOutput(&bytes.Buffer{}))
		err := v.Run(compile(t, src, core.O0))
		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			t.Errorf("Run(%.10q): got %v, want *RuntimeError", src, err)
		}
	}
}

func TestTapeIsolation(t *testing.T) {
	// A fresh zeroed tape per run: the second run must see none of the
	// first run's state.
	v := NewVM(WithOutput(&bytes.Buffer{}))
	ops := compile(t, "+++++", core.O0)
	if err := v.Run(ops); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	var out bytes.Buffer
	v2 := NewVM(WithOutput(&out))
	if err := v2.Run(compile(t, ".", core.O0)); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if got := out.Bytes(); len(got) != 1 || got[0] != 0 {
		t.Errorf("second run printed %v, want [0]", got)
	}

	// Same instance reused: Run re-zeroes the tape.
	out.Reset()
	v3 := NewVM(WithOutput(&out))
	if err := v3.Run(compile(t, "+.", core.O0)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if err := v3.Run(compile(t, ".", core.O0)); err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if got := out.Bytes(); !bytes.Equal(got, []byte{1, 0}) {
		t.Errorf("got %v, want [1 0]", got)
	}
}
