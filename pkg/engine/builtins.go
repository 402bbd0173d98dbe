package engine

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/ezsplit/pkg/ezsplit"
	"github.com/chazu/ezsplit/pkg/kernel"
	"github.com/chazu/ezsplit/pkg/scene"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: split-all -> split_all
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or extent.
type sexpVec3 struct {
	x, y, z float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.x, v.y, v.z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid built by a primitive or boolean builtin.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpActor refers to an actor in the scene.
type sexpActor struct {
	id    scene.ActorID
	label string
}

func (a *sexpActor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(actor %q)", a.label)
}
func (a *sexpActor) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (*sexpVec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// evalState is the per-evaluation state shared by the builtins.
type evalState struct {
	ctx       context.Context
	selection []scene.ActorID
	res       *EvalResult
}

func (st *evalState) record(r *ezsplit.Report) {
	st.res.Reports = append(st.res.Reports, r)
	for _, err := range r.Errors {
		st.res.Warnings = append(st.res.Warnings, EvalWarning{Message: err.Error()})
	}
}

// actorArgs resolves actor references and labels to IDs. With no
// arguments the current selection is used.
func (e *Engine) actorArgs(name string, args []zygo.Sexp, st *evalState) ([]scene.ActorID, error) {
	if len(args) == 0 {
		return st.selection, nil
	}
	var ids []scene.ActorID
	for _, arg := range args {
		items := []zygo.Sexp{arg}
		if list, err := sexpListToSlice(arg); err == nil {
			items = list
		}
		for _, it := range items {
			switch v := it.(type) {
			case *sexpActor:
				ids = append(ids, v.id)
			case *zygo.SexpStr:
				a := e.scene.Lookup(v.S)
				if a == nil {
					return nil, fmt.Errorf("%s: no actor labelled %q", name, v.S)
				}
				ids = append(ids, a.ID)
			default:
				return nil, fmt.Errorf("%s: expected actor or label, got %s", name, it.SexpString(nil))
			}
		}
	}
	return ids, nil
}

func (e *Engine) actorRef(id scene.ActorID) zygo.Sexp {
	if a := e.scene.Get(id); a != nil {
		return &sexpActor{id: id, label: a.Label}
	}
	return zygo.SexpNull
}

// operationError turns an operation's error into a script error when the
// operation changed nothing. Otherwise its failures are already recorded as
// warnings.
func operationError(name string, r *ezsplit.Report, err error) error {
	if err == nil || len(r.Spawned) > 0 {
		return nil
	}
	var sel *ezsplit.SelectionError
	if errors.As(err, &sel) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// builtin is the signature zygomys expects for host functions.
type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// guarded runs fn while holding the engine's host lock and refuses to run
// it once the evaluation is cancelled. Every builtin that reaches the scene,
// the store or the session goes through it.
func (e *Engine) guarded(st *evalState, fn builtin) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		e.host.Lock()
		defer e.host.Unlock()
		if err := st.ctx.Err(); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return fn(env, name, args)
	}
}

// registerBuiltins installs the ezsplit builtins into a zygomys environment.
// Source code must be preprocessed with preprocessSource() before evaluation
// so that :keyword tokens are converted to recognizable string literals.
func (e *Engine) registerBuiltins(env *zygo.Zlisp, st *evalState) {
	// (vec3 x y z)
	env.AddFunction("vec3", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3: expected 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
			}
			xyz[i] = f
		}
		return &sexpVec3{x: xyz[0], y: xyz[1], z: xyz[2]}, nil
	}))

	// (box x y z :at (vec3 ...))
	env.AddFunction("box", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p := parseArgs(args)
		if len(p.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("box: expected 3 dimensions, got %d", len(p.positional))
		}
		var d [3]float64
		for i, a := range p.positional {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %w", err)
			}
			if f <= 0 {
				return zygo.SexpNull, fmt.Errorf("box: dimensions must be positive, got %g", f)
			}
			d[i] = f
		}
		s := &sexpSolid{solid: e.kernel.Box(d[0], d[1], d[2]), desc: fmt.Sprintf("box %g %g %g", d[0], d[1], d[2])}
		return e.placed(name, s, p)
	}))

	// (cylinder height radius :segments 32 :at (vec3 ...))
	env.AddFunction("cylinder", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p := parseArgs(args)
		if len(p.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("cylinder: expected height and radius, got %d arguments", len(p.positional))
		}
		h, err := toFloat64(p.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder height: %w", err)
		}
		r, err := toFloat64(p.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder radius: %w", err)
		}
		if h <= 0 || r <= 0 {
			return zygo.SexpNull, fmt.Errorf("cylinder: height and radius must be positive")
		}
		segments := 32
		if v, ok := p.kw["segments"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder :segments: %w", err)
			}
			segments = int(f)
		}
		s := &sexpSolid{solid: e.kernel.Cylinder(h, r, segments), desc: fmt.Sprintf("cylinder %g %g", h, r)}
		return e.placed(name, s, p)
	}))

	// (difference a b)
	env.AddFunction("difference", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("difference: expected 2 solids, got %d", len(args))
		}
		a, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference: %w", err)
		}
		b, err := toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference: %w", err)
		}
		return &sexpSolid{solid: e.kernel.Difference(a.solid, b.solid), desc: "difference"}, nil
	}))

	// (spawn "label" solid... :path "/Game/..." :folder "Props")
	// Unions the solids into one mesh asset and places an actor for it. The
	// asset path defaults to /Game/<label>.
	env.AddFunction("spawn", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p := parseArgs(args)
		if len(p.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("spawn: expected a label and at least one solid")
		}
		label, err := toString(p.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spawn label: %w", err)
		}
		var solid kernel.Solid
		for _, a := range p.positional[1:] {
			s, err := toSolid(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("spawn %q: %w", label, err)
			}
			if solid == nil {
				solid = s.solid
			} else {
				solid = e.kernel.Union(solid, s.solid)
			}
		}
		assetPath := path.Join("/Game", label)
		if v, ok := p.kw["path"]; ok {
			if assetPath, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("spawn :path: %w", err)
			}
		}
		folder := ""
		if v, ok := p.kw["folder"]; ok {
			if folder, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("spawn :folder: %w", err)
			}
		}

		buf, err := e.kernel.ToMesh(solid)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spawn %q: %w", label, err)
		}
		if err := e.store.Put(assetPath, buf); err != nil {
			return zygo.SexpNull, fmt.Errorf("spawn %q: %w", label, err)
		}
		id, err := e.scene.Spawn(label, folder, assetPath)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("spawn %q: %w", label, err)
		}
		st.selection = []scene.ActorID{id}
		return &sexpActor{id: id, label: label}, nil
	}))

	// (select "label" ...) replaces the selection and returns its size.
	env.AddFunction("select", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			st.selection = nil
			return &zygo.SexpInt{Val: 0}, nil
		}
		ids, err := e.actorArgs(name, args, st)
		if err != nil {
			return zygo.SexpNull, err
		}
		st.selection = ids
		return &zygo.SexpInt{Val: int64(len(ids))}, nil
	}))

	// (actors) lists the labels of every actor, or of those in a folder.
	env.AddFunction("actors", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		list := e.scene.Actors()
		if len(args) == 1 {
			folder, err := toString(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("actors: %w", err)
			}
			list = e.scene.InFolder(strings.Trim(folder, "/"))
		} else if len(args) > 1 {
			return zygo.SexpNull, fmt.Errorf("actors: expected at most 1 argument, got %d", len(args))
		}
		out := make([]zygo.Sexp, len(list))
		for i, a := range list {
			out[i] = &zygo.SexpStr{S: a.Label}
		}
		return zygo.MakeList(out), nil
	}))

	// (split) or (split "label" ...) splits each actor into its loose parts.
	// The new parts become the selection; the count is returned.
	env.AddFunction("split", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := e.actorArgs(name, args, st)
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := e.sess.Split(st.ctx, ids)
		st.record(r)
		if err := operationError(name, r, err); err != nil {
			return zygo.SexpNull, err
		}
		st.selection = r.Spawned
		return &zygo.SexpInt{Val: int64(len(r.Spawned))}, nil
	}))

	// (merge) or (merge "label" ...) merges the actors into one. The merged
	// actor becomes the selection and is returned.
	env.AddFunction("merge", e.guarded(st, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := e.actorArgs(name, args, st)
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := e.sess.Merge(st.ctx, ids)
		st.record(r)
		if err := operationError(name, r, err); err != nil {
			return zygo.SexpNull, err
		}
		if len(r.Spawned) == 0 {
			return zygo.SexpNull, nil
		}
		st.selection = r.Spawned
		return e.actorRef(r.Spawned[0]), nil
	}))
}

// placed applies an optional :at translation to a primitive.
func (e *Engine) placed(name string, s *sexpSolid, p kwArgs) (zygo.Sexp, error) {
	v, ok := p.kw["at"]
	if !ok {
		return s, nil
	}
	at, err := toVec3(v)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s :at: %w", name, err)
	}
	s.solid = e.kernel.Translate(s.solid, at.x, at.y, at.z)
	return s, nil
}
