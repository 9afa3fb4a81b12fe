package main

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/gmp-native/native"
)

func newTestEvaluator(t *testing.T, w uint64) *evaluator {
	t.Helper()
	be, err := openBackend(context.Background(), "", w, native.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return newEvaluator(be.env)
}

func TestEval(t *testing.T) {
	ctx := context.Background()
	for _, w := range []uint64{4, 8} {
		ev := newTestEvaluator(t, w)
		tests := []struct {
			line string
			want string
		}{
			{"int 000123", "123"},
			{"rat 6/4", "3/2"},
			{"float 250", "0.25e3"},
			{`printf "%Zd and %d" z:-42 7`, "-42 and 7"},
			{"printf %Qd|%.1Ff|%s q:10/4 f:2.5 word", "5/2|2.5|word"},
			{"printf %lld 1099511627776", "1099511627776"},
			{"base 16", "base 16"},
			{"int ff", "ff"},
			{"prec 128", "prec 128"},
			{"", ""},
		}
		for _, tc := range tests {
			got, err := ev.eval(ctx, tc.line)
			if err != nil {
				t.Errorf("w=%d %q: %v", w, tc.line, err)
				continue
			}
			if got != tc.want {
				t.Errorf("w=%d %q = %q, want %q", w, tc.line, got, tc.want)
			}
		}
	}
}

func TestEval_Limbs(t *testing.T) {
	tests := []struct {
		w    uint64
		want string
	}{
		{4, "size=-3 alloc=3 limbs=[0x0 0x0 0x1]"},
		{8, "size=-2 alloc=2 limbs=[0x0 0x1]"},
	}
	for _, tc := range tests {
		ev := newTestEvaluator(t, tc.w)
		got, err := ev.eval(context.Background(), "limbs -18446744073709551616")
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("w=%d: %q, want %q", tc.w, got, tc.want)
		}
	}
}

func TestEval_Rand(t *testing.T) {
	ev := newTestEvaluator(t, 8)
	a, err := ev.eval(context.Background(), "rand 42 100")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ev.eval(context.Background(), "rand 42 100")
	if a != b || a == "" {
		t.Errorf("same seed gave %q and %q", a, b)
	}
}

func TestEval_Errors(t *testing.T) {
	ev := newTestEvaluator(t, 8)
	for _, line := range []string{
		"bogus",
		"int",
		"int 1 2",
		"int 12x",
		"rat 1/0",
		"printf",
		`printf "unterminated`,
		"printf %d q:1/0",
		"rand x 10",
		"prec 0",
		"base ten",
	} {
		if _, err := ev.eval(context.Background(), line); err == nil {
			t.Errorf("%q accepted", line)
		}
	}
	if out, _ := ev.eval(context.Background(), "help"); !strings.Contains(out, "printf FORMAT") {
		t.Error("help text missing printf")
	}
}

func TestSplitFormat(t *testing.T) {
	tests := []struct {
		in, format, tail string
	}{
		{"%d 1 2", "%d", "1 2"},
		{`"a %d\n" 5`, "a %d\n", " 5"},
		{"%s", "%s", ""},
	}
	for _, tc := range tests {
		format, tail, err := splitFormat(tc.in)
		if err != nil || format != tc.format || tail != tc.tail {
			t.Errorf("splitFormat(%q) = %q, %q, %v", tc.in, format, tail, err)
		}
	}
}
