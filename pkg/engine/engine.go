// Package engine evaluates frametree scripts. It wraps zygomys in a sandboxed
// environment and builds a frame hierarchy from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/frametree/pkg/frames"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Message string
	FrameID frames.FrameID
}

// EvalResult bundles the full output of an evaluation for use by UI bindings.
type EvalResult struct {
	Hierarchy *frames.Hierarchy
	Errors    []EvalError
	Warnings  []EvalWarning
}

// Engine wraps the zygomys interpreter for script evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	gens generations

	timeout   time.Duration
	frameOpts []frames.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds a single evaluation. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithFrameOptions sets the options every script's hierarchy is created with.
func WithFrameOptions(opts ...frames.Option) Option {
	return func(e *Engine) {
		e.frameOpts = append([]frames.Option(nil), opts...)
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate takes Lisp source code and produces a new Hierarchy.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns hierarchy + nil errors + nil error
//   - On parse/eval failure: returns nil hierarchy + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*frames.Hierarchy, []EvalError, error) {
	res, err := e.Run(source)
	if err != nil {
		return nil, nil, err
	}
	return res.Hierarchy, res.Errors, nil
}

// Run is Evaluate with warnings included.
func (e *Engine) Run(source string) (EvalResult, error) {
	gen := e.gens.next()
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		ch <- e.evaluate(source)
	}()

	res, err := await(ch, e.timeout, gen, &e.gens)
	if err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Hierarchy: res.h, Errors: res.errors, Warnings: res.warnings}, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) outcome {
	st := newEvalState(frames.New(e.frameOpts...))

	// Empty source is a valid program that produces a root-only hierarchy.
	if strings.TrimSpace(source) == "" {
		return outcome{h: st.h}
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return outcome{errors: parseZygomysError(err)}
	}
	if _, err := env.Run(); err != nil {
		return outcome{errors: parseZygomysError(err)}
	}

	return outcome{h: st.h, warnings: st.warnings}
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
