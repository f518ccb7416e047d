package models

import (
	"sort"

	"github.com/banshee-data/camctl/internal/sensor"
)

var builtin = map[string]sensor.Factory{
	"imx219":  func() sensor.ControlModel { return NewIMX219() },
	"imx290":  func() sensor.ControlModel { return NewIMX290() },
	"imx296":  func() sensor.ControlModel { return NewIMX296() },
	"imx477":  func() sensor.ControlModel { return NewIMX477() },
	"imx708":  func() sensor.ControlModel { return NewIMX708() },
	"ov5647":  func() sensor.ControlModel { return NewOV5647() },
	"ov64a40": func() sensor.ControlModel { return NewOV64A40() },
}

func init() {
	for _, id := range Builtin() {
		sensor.MustRegister(id, builtin[id])
	}
}

// Builtin lists the identifiers registered by this package, sorted.
func Builtin() []string {
	ids := make([]string, 0, len(builtin))
	for id := range builtin {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RegisterBuiltin adds every built-in model to reg, for callers that keep
// their own registry instead of sensor.Default().
func RegisterBuiltin(reg *sensor.Registry) error {
	for _, id := range Builtin() {
		if err := reg.Register(id, builtin[id]); err != nil {
			return err
		}
	}
	return nil
}
