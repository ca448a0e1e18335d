package shield

import (
	"errors"
	"math"

	"github.com/dop251/goja"

	"github.com/stupside/veil/internal/intercept"
)

// Constant hardware, network and battery values reported to the page.
const (
	DeviceMemory        = 8
	HardwareConcurrency = 8
	MaxTouchPoints      = 0

	ConnectionType = "4g"
	ConnectionRTT  = 50
	ConnectionDown = 10.0

	BatteryLevel = 1.0
)

func installNavigator(_ *Session, p *page) (int, error) {
	target, err := intercept.Prototype(p.vm, "Navigator")
	if errors.Is(err, intercept.ErrMissing) {
		nav := p.vm.Get("navigator")
		if !present(nav) {
			return 0, nil
		}
		target, err = nav.ToObject(p.vm), nil
	}
	if err != nil {
		return 0, err
	}

	connection := p.vm.NewObject()
	for k, v := range map[string]any{
		"effectiveType": ConnectionType,
		"rtt":           ConnectionRTT,
		"downlink":      ConnectionDown,
		"saveData":      false,
	} {
		if err := connection.Set(k, v); err != nil {
			return 0, err
		}
	}

	props := []struct {
		name  string
		value goja.Value
	}{
		{"deviceMemory", p.vm.ToValue(DeviceMemory)},
		{"hardwareConcurrency", p.vm.ToValue(HardwareConcurrency)},
		{"maxTouchPoints", p.vm.ToValue(MaxTouchPoints)},
		{"connection", connection},
	}

	n := 0
	var errs []error
	for _, prop := range props {
		if err := p.constant(target, prop.name, prop.value); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if err := p.batteryMethod(target); err != nil {
		errs = append(errs, err)
	} else {
		n++
	}
	return n, errors.Join(errs...)
}

// constant defines a masked getter on target that always returns value.
func (p *page) constant(target *goja.Object, name string, value goja.Value) error {
	getter := p.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return value
	}).ToObject(p.vm)
	if err := intercept.NameFunction(p.vm, getter, "get "+name, 0); err != nil {
		return err
	}
	if err := p.table.Masker().Register(getter, "get "+name); err != nil {
		return err
	}
	return target.DefineAccessorProperty(name, getter, nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

// batteryMethod defines getBattery resolving a fully charged battery.
func (p *page) batteryMethod(target *goja.Object) error {
	battery := p.vm.NewObject()
	for k, v := range map[string]any{
		"charging":        true,
		"chargingTime":    0,
		"dischargingTime": math.Inf(1),
		"level":           BatteryLevel,
	} {
		if err := battery.Set(k, v); err != nil {
			return err
		}
	}

	promise := p.vm.Get("Promise")
	if !present(promise) {
		return intercept.ErrMissing
	}
	ctor := promise.ToObject(p.vm)
	fn := p.vm.ToValue(func(goja.FunctionCall) goja.Value {
		res, err := call(ctor, "resolve", battery)
		if err != nil {
			intercept.Rethrow(err)
		}
		return res
	}).ToObject(p.vm)
	if err := intercept.NameFunction(p.vm, fn, "getBattery", 0); err != nil {
		return err
	}
	if err := p.table.Masker().Register(fn, "getBattery"); err != nil {
		return err
	}
	return target.DefineDataProperty("getBattery", fn, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_TRUE)
}
