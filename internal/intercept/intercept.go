// Package intercept wraps methods of a goja page runtime with
// call-through-then-transform adapters that are indistinguishable from the
// built-ins they replace.
//
// Every (object, method) pair moves from unpatched to patched at most once;
// there is no way back. Wrappers always call the original first with the
// caller's arguments (Before policies may rewrite a side channel of the
// input), rethrow its errors unchanged, and fall back to the untouched
// result whenever a transformation cannot be applied.
package intercept

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
)

var (
	// ErrPatched is returned when the method is already wrapped.
	ErrPatched = errors.New("already patched")
	// ErrMissing is returned when the target has no such method.
	ErrMissing = errors.New("method not found")
	// ErrSkip is returned by a policy whose preconditions do not hold; the
	// wrapper then returns the original result.
	ErrSkip = errors.New("transformation skipped")
)

// Call describes one invocation of a wrapped method.
type Call struct {
	VM   *goja.Runtime
	Name string
	This goja.Value
	Args []goja.Value
}

// Arg returns the i-th argument or undefined.
func (c Call) Arg(i int) goja.Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return goja.Undefined()
}

// After transforms the value produced by the original method.
type After func(call Call, result goja.Value) (goja.Value, error)

// Before rewrites the arguments handed to the original method.
type Before func(call Call) ([]goja.Value, error)

// Around takes over the whole invocation. If it fails, the wrapper calls
// the original directly on the caller's receiver and arguments.
type Around func(call Call, orig goja.Callable) (goja.Value, error)

// Policy is the transformation installed around one method. Around
// excludes Before and After.
type Policy struct {
	Before Before
	After  After
	Around Around
}

type key struct {
	obj  *goja.Object
	name string
}

// Table is the record of intercepted methods for one runtime: it maps
// (object, method name) to the original function and knows every wrapper
// it has produced.
type Table struct {
	vm        *goja.Runtime
	masker    *Masker
	logger    *slog.Logger
	originals map[key]goja.Callable
	wrappers  map[*goja.Object]string
}

// NewTable returns an empty Table for vm.
func NewTable(vm *goja.Runtime, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		vm:        vm,
		masker:    NewMasker(vm),
		logger:    logger,
		originals: make(map[key]goja.Callable),
		wrappers:  make(map[*goja.Object]string),
	}
}

// VM returns the runtime the table patches.
func (t *Table) VM() *goja.Runtime {
	return t.vm
}

// Masker returns the masker shared by all wrappers of the table.
func (t *Table) Masker() *Masker {
	return t.masker
}

// Len returns the number of patched methods.
func (t *Table) Len() int {
	return len(t.originals)
}

// Patched reports whether target[name] has been wrapped by this table.
func (t *Table) Patched(target *goja.Object, name string) bool {
	_, ok := t.originals[key{target, name}]
	return ok
}

// Original returns the function that target[name] held before patching.
func (t *Table) Original(target *goja.Object, name string) (goja.Callable, bool) {
	fn, ok := t.originals[key{target, name}]
	return fn, ok
}

// IsWrapper reports whether v is a function produced by this table.
func (t *Table) IsWrapper(v goja.Value) bool {
	o, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	_, ok = t.wrappers[o]
	return ok
}

// Install replaces target[name] with a wrapper applying p. It returns
// ErrPatched if the method is already wrapped and ErrMissing if target has
// no callable under name.
func (t *Table) Install(target *goja.Object, name string, p Policy) error {
	k := key{target, name}
	if _, ok := t.originals[k]; ok {
		return fmt.Errorf("%s: %w", name, ErrPatched)
	}
	current := target.Get(name)
	if current == nil {
		return fmt.Errorf("%s: %w", name, ErrMissing)
	}
	orig, ok := goja.AssertFunction(current)
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrMissing)
	}
	if t.IsWrapper(current) {
		return fmt.Errorf("%s: %w", name, ErrPatched)
	}

	var length int64
	if l := current.ToObject(t.vm).Get("length"); l != nil {
		length = l.ToInteger()
	}

	wrapper := t.vm.ToValue(t.adapter(name, orig, p)).ToObject(t.vm)
	if err := NameFunction(t.vm, wrapper, name, length); err != nil {
		return err
	}
	if err := t.masker.Register(wrapper, name); err != nil {
		return err
	}
	if err := target.Set(name, wrapper); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}

	t.originals[k] = orig
	t.wrappers[wrapper] = name
	t.logger.Debug("method intercepted", "method", name)
	return nil
}

// adapter builds the native function body for one wrapper. A call made
// while the same wrapper is already running goes straight to the
// original, so transformations that reach back into patched APIs neither
// recurse nor apply noise twice.
func (t *Table) adapter(name string, orig goja.Callable, p Policy) func(goja.FunctionCall) goja.Value {
	busy := false
	return func(fc goja.FunctionCall) goja.Value {
		if busy {
			res, err := orig(fc.This, fc.Arguments...)
			if err != nil {
				Rethrow(err)
			}
			return res
		}
		busy = true
		defer func() { busy = false }()

		call := Call{VM: t.vm, Name: name, This: fc.This, Args: fc.Arguments}
		if p.Around != nil {
			out, err := t.around(p.Around, call, orig)
			if err == nil {
				return out
			}
			if !errors.Is(err, ErrSkip) {
				t.logger.Debug("substitute call failed, delegating", "method", name, "error", err)
			}
			res, err := orig(fc.This, fc.Arguments...)
			if err != nil {
				Rethrow(err)
			}
			return res
		}

		args := fc.Arguments
		if p.Before != nil {
			if rewritten, err := t.before(p.Before, call); err == nil {
				args = rewritten
			} else if !errors.Is(err, ErrSkip) {
				t.logger.Debug("input transformation failed", "method", name, "error", err)
			}
		}

		res, err := orig(fc.This, args...)
		if err != nil {
			Rethrow(err)
		}

		if p.After != nil {
			out, err := t.after(p.After, call, res)
			if err == nil {
				return out
			}
			if !errors.Is(err, ErrSkip) {
				t.logger.Debug("output transformation failed", "method", name, "error", err)
			}
		}
		return res
	}
}

func (t *Table) before(fn Before, call Call) (args []goja.Value, err error) {
	defer recoverInto(&err)
	return fn(call)
}

func (t *Table) around(fn Around, call Call, orig goja.Callable) (out goja.Value, err error) {
	defer recoverInto(&err)
	return fn(call, orig)
}

func (t *Table) after(fn After, call Call, res goja.Value) (out goja.Value, err error) {
	defer recoverInto(&err)
	return fn(call, res)
}

// recoverInto turns a panic raised by a policy into an error so the
// wrapper can fail open. Interrupts are not swallowed.
func recoverInto(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*goja.InterruptedError); ok {
		panic(ie)
	}
	*err = fmt.Errorf("policy panicked: %v", r)
}
