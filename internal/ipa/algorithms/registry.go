package algorithms

import (
	"errors"
	"sort"

	"github.com/banshee-data/camctl/internal/config"
	"github.com/banshee-data/camctl/internal/ctlerr"
	"github.com/banshee-data/camctl/internal/ipa"
)

// ErrUnknownAlgorithm is returned for algorithm names with no constructor.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Constructor builds an algorithm from tuning.
type Constructor func(t *config.TuningConfig) ipa.Algorithm

var constructors = map[string]Constructor{
	"agc": func(t *config.TuningConfig) ipa.Algorithm {
		return NewAgc(AgcOptions{
			TargetLuminance: t.GetTargetLuminance(),
			Speed:           t.GetAgcSpeed(),
			InitialExposure: t.GetInitialExposure(),
			MaxExposure:     t.GetMaxExposure(),
		})
	},
	"awb": func(t *config.TuningConfig) ipa.Algorithm {
		return NewAwb(AwbOptions{
			Speed:   t.GetAwbSpeed(),
			MinGain: t.GetAwbMinGain(),
			MaxGain: t.GetAwbMaxGain(),
		})
	},
	"cproc":  func(*config.TuningConfig) ipa.Algorithm { return NewCproc() },
	"dpf":    func(t *config.TuningConfig) ipa.Algorithm { return NewDpf(t.GetDpfEnabled()) },
	"filter": func(t *config.TuningConfig) ipa.Algorithm { return NewFilter(t.GetSharpness(), t.GetDenoise()) },
	"lsc":    func(t *config.TuningConfig) ipa.Algorithm { return NewLsc(t.GetLscTable()) },
}

// Names returns the known algorithm names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromTuning builds the algorithms listed in t, in order.
func FromTuning(t *config.TuningConfig) ([]ipa.Algorithm, error) {
	if t == nil {
		t = config.EmptyTuningConfig()
	}
	var algs []ipa.Algorithm
	for _, name := range t.GetAlgorithms() {
		ctor, ok := constructors[name]
		if !ok {
			return nil, ctlerr.Configuration("load algorithm", name, ErrUnknownAlgorithm)
		}
		algs = append(algs, ctor(t))
	}
	return algs, nil
}
