package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrPending is returned when an evaluated promise has not settled once the
// job queue drained.
var ErrPending = errors.New("promise still pending")

// Evaluate runs expr in the page and decodes its JSON form into out. A
// promise result is awaited. Cancelling ctx interrupts the script.
func (p *Page) Evaluate(ctx context.Context, expr string, out any) error {
	stop := context.AfterFunc(ctx, func() {
		p.vm.Interrupt(context.Cause(ctx))
	})
	defer func() {
		if !stop() {
			p.vm.ClearInterrupt()
		}
	}()

	v, err := p.vm.RunString(expr)
	if err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}

	if promise, ok := v.Export().(*goja.Promise); ok {
		switch promise.State() {
		case goja.PromiseStatePending:
			return ErrPending
		case goja.PromiseStateRejected:
			return fmt.Errorf("evaluating script: rejected: %s", promise.Result())
		}
		v = promise.Result()
	}
	if out == nil {
		return nil
	}

	raw, err := p.stringify(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

func (p *Page) stringify(v goja.Value) (string, error) {
	stringify, ok := goja.AssertFunction(p.vm.Get("JSON").ToObject(p.vm).Get("stringify"))
	if !ok {
		return "", fmt.Errorf("JSON.stringify is not callable")
	}
	res, err := stringify(goja.Undefined(), v)
	if err != nil {
		return "", fmt.Errorf("serialising result: %w", err)
	}
	if goja.IsUndefined(res) {
		return "null", nil
	}
	return res.String(), nil
}
