// Package engine provides the Lisp scripting engine for ezsplit.
// It wraps zygomys in a sandboxed environment and exposes builtins that
// author meshes, select actors, and run split and merge operations against
// a session.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/ezsplit/pkg/ezsplit"
	"github.com/chazu/ezsplit/pkg/kernel"
	"github.com/chazu/ezsplit/pkg/mesh"
	"github.com/chazu/ezsplit/pkg/scene"
)

// DefaultTimeout is the limit for a single evaluation when none is set.
const DefaultTimeout = 5 * time.Second

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

// EvalWarning is a failure reported by an operation that still ran, such as
// one split part that could not be saved.
type EvalWarning struct {
	Message string
}

// EvalResult bundles the output of a successful evaluation.
type EvalResult struct {
	Value     string // printed value of the last expression
	Selection []scene.ActorID
	Reports   []*ezsplit.Report
	Warnings  []EvalWarning
}

// Store is the asset store a script writes authored meshes to.
type Store interface {
	Put(assetPath string, b *mesh.Buffers) error
}

// Engine evaluates scripts against one session and scene. It is safe for
// concurrent use: each call to Evaluate creates a fresh sandbox, and builtins
// that touch the scene run one at a time under the host lock.
type Engine struct {
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64

	host   sync.Mutex
	sess   *ezsplit.Session
	scene  *scene.Scene
	store  Store
	kernel kernel.Kernel
}

// NewEngine creates an Engine. sess must operate on sc.
func NewEngine(sess *ezsplit.Session, sc *scene.Scene, store Store, k kernel.Kernel) *Engine {
	return &Engine{
		Timeout: DefaultTimeout,
		sess:    sess,
		scene:   sc,
		store:   store,
		kernel:  k,
	}
}

// Evaluate runs source in a fresh sandbox.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
//
// Scene changes made before a failure are kept. Once Evaluate returns, the
// evaluation's builtins no longer touch the scene, even when it timed out
// and its goroutine is still running.
func (e *Engine) Evaluate(ctx context.Context, source string) (*EvalResult, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(ctx)

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, evalErrs, err := e.evaluate(ctx, source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	res, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, timeout, cancel)
	// The context is cancelled by now; wait out any builtin still running.
	e.host.Lock()
	e.host.Unlock()
	return res, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, source string) (*EvalResult, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return &EvalResult{}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	st := &evalState{ctx: ctx, res: &EvalResult{}}
	e.registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	v, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}
	if v != nil {
		st.res.Value = v.SexpString(nil)
	}
	st.res.Selection = st.selection
	return st.res, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
