package intercept

import (
	"fmt"

	"github.com/dop251/goja"
)

// Masker makes wrapper functions stringify like platform built-ins. It
// replaces Function.prototype.toString once per runtime with a version
// that consults a registry before falling back to the original.
type Masker struct {
	vm    *goja.Runtime
	names map[*goja.Object]string
	ready bool
}

// NewMasker returns a Masker for vm. Nothing is patched until the first
// Register call.
func NewMasker(vm *goja.Runtime) *Masker {
	return &Masker{vm: vm, names: make(map[*goja.Object]string)}
}

// NativeString is the string form of a built-in function called name.
func NativeString(name string) string {
	return fmt.Sprintf("function %s() { [native code] }", name)
}

// Register records fn as a built-in called name.
func (m *Masker) Register(fn *goja.Object, name string) error {
	if err := m.install(); err != nil {
		return err
	}
	m.names[fn] = NativeString(name)
	return nil
}

// Masked reports whether fn has been registered.
func (m *Masker) Masked(fn *goja.Object) bool {
	_, ok := m.names[fn]
	return ok
}

func (m *Masker) install() error {
	if m.ready {
		return nil
	}
	proto, err := protoOf(m.vm, "Function")
	if err != nil {
		return err
	}
	orig, ok := goja.AssertFunction(proto.Get("toString"))
	if !ok {
		return fmt.Errorf("Function.prototype.toString: %w", ErrMissing)
	}

	replacement := m.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if o, ok := call.This.(*goja.Object); ok {
			if s, ok := m.names[o]; ok {
				return m.vm.ToValue(s)
			}
		}
		res, err := orig(call.This, call.Arguments...)
		if err != nil {
			Rethrow(err)
		}
		return res
	}).ToObject(m.vm)

	if err := NameFunction(m.vm, replacement, "toString", 0); err != nil {
		return err
	}
	m.names[replacement] = NativeString("toString")
	if err := proto.Set("toString", replacement); err != nil {
		return fmt.Errorf("replacing Function.prototype.toString: %w", err)
	}
	m.ready = true
	return nil
}

// NameFunction gives fn the name and length of the built-in it stands in for.
func NameFunction(vm *goja.Runtime, fn *goja.Object, name string, length int64) error {
	if err := fn.DefineDataProperty("name", vm.ToValue(name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return fmt.Errorf("naming %s: %w", name, err)
	}
	if err := fn.DefineDataProperty("length", vm.ToValue(length), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return fmt.Errorf("setting length of %s: %w", name, err)
	}
	return nil
}

// protoOf returns globalThis[ctor].prototype.
func protoOf(vm *goja.Runtime, ctor string) (*goja.Object, error) {
	c := vm.Get(ctor)
	if c == nil || goja.IsUndefined(c) || goja.IsNull(c) {
		return nil, fmt.Errorf("%s: %w", ctor, ErrMissing)
	}
	p := c.ToObject(vm).Get("prototype")
	if p == nil || goja.IsUndefined(p) || goja.IsNull(p) {
		return nil, fmt.Errorf("%s.prototype: %w", ctor, ErrMissing)
	}
	return p.ToObject(vm), nil
}

// Prototype is protoOf for callers outside the package.
func Prototype(vm *goja.Runtime, ctor string) (*goja.Object, error) {
	return protoOf(vm, ctor)
}

// Rethrow propagates an error returned by a JS call back into the JS
// caller unchanged. It must only be called from a native function body.
func Rethrow(err error) {
	if ex, ok := err.(*goja.Exception); ok {
		panic(ex.Value())
	}
	panic(err)
}
