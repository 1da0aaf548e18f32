package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chazu/frametree/pkg/frames"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	h, evalErrs, err := eng.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if h == nil {
		t.Fatal("expected non-nil hierarchy")
	}
	if h.Len() != 1 {
		t.Errorf("expected root-only hierarchy, got %d frames", h.Len())
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := NewEngine()

	h, evalErrs, err := eng.Evaluate("   \n\t  \n  ")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if h == nil || h.Len() != 1 {
		t.Fatalf("expected root-only hierarchy, got %v", h)
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	eng := NewEngine()

	// (+ 1 2) is valid Lisp that builds no frames.
	h, evalErrs, err := eng.Evaluate("(+ 1 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if h == nil {
		t.Fatal("expected non-nil hierarchy")
	}
	if h.Len() != 1 {
		t.Errorf("expected root-only hierarchy, got %d frames", h.Len())
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	h, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if h == nil {
		t.Fatal("expected non-nil hierarchy")
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	h, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if h != nil {
		t.Fatal("expected nil hierarchy on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	h, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if h != nil {
		t.Fatal("expected nil hierarchy on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	eng := NewEngine()

	// Put the error on line 2.
	source := "(+ 1 2)\n(+ 3"
	h, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if h != nil {
		t.Fatal("expected nil hierarchy on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}

	// Line info depends on the zygomys error format; only the message is
	// guaranteed.
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	} else {
		t.Logf("no line info extracted (line=0), message=%q", e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	source := `(frame "A" :at (vec3 1 2 3))`

	var first *frames.Document
	for i := 0; i < 5; i++ {
		h, evalErrs, err := eng.Evaluate(source)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		doc := h.Export()
		doc.Timestamp = ""
		if first == nil {
			first = doc
			continue
		}
		if len(doc.Nodes) != len(first.Nodes) {
			t.Fatalf("iteration %d: %d frames, want %d", i, len(doc.Nodes), len(first.Nodes))
		}
		for id, rec := range first.Nodes {
			if !sameRecord(doc.Nodes[id], rec) {
				t.Errorf("iteration %d: frame %s = %+v, want %+v", i, id, doc.Nodes[id], rec)
			}
		}
	}
}

func TestEngineOptions(t *testing.T) {
	eng := NewEngine(WithTimeout(time.Second), WithFrameOptions(frames.WithRootName("Base")))
	if eng.timeout != time.Second {
		t.Errorf("timeout = %s, want 1s", eng.timeout)
	}
	if NewEngine(WithTimeout(0)).timeout != EvalTimeout {
		t.Error("WithTimeout(0) should keep the default")
	}

	h, evalErrs, err := eng.Evaluate(`(frame "A" :parent "Base")`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Evaluate: %v %v", err, evalErrs)
	}
	root, _ := h.Node(h.Root())
	if root.Name != "Base" {
		t.Errorf("root name = %q, want Base", root.Name)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// await is exercised directly with a channel that never sends;
	// zygomys gives no cheap way to write a script that spins forever.
	var gens generations
	gen := gens.next()
	ch := make(chan outcome)

	done := make(chan struct{})
	var resultErr error
	go func() {
		defer close(done)
		_, resultErr = await(ch, 50*time.Millisecond, gen, &gens)
	}()

	select {
	case <-done:
		if !errors.Is(resultErr, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got: %v", resultErr)
		}
		if !strings.Contains(resultErr.Error(), "50ms") {
			t.Errorf("timeout message should name the limit: %v", resultErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var gens generations
	stale := gens.next()
	gens.next()

	ch := make(chan outcome, 1)
	ch <- outcome{}

	if _, err := await(ch, time.Second, stale, &gens); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got: %v", err)
	}
}

func TestAwaitPassesSandboxError(t *testing.T) {
	var gens generations
	gen := gens.next()

	ch := make(chan outcome, 1)
	ch <- outcome{err: fmt.Errorf("panic during evaluation: boom")}

	_, err := await(ch, time.Second, gen, &gens)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want the sandbox error", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: frame: no frame named \"x\"",
			wantLine: 3,
			wantMsg:  "no frame named",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func sameRecord(a, b frames.NodeRecord) bool {
	ap, bp := a.ParentID, b.ParentID
	a.ParentID, b.ParentID = nil, nil
	if (ap == nil) != (bp == nil) || (ap != nil && *ap != *bp) {
		return false
	}
	return a == b
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
