package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/camctl/internal/sensor"
	"github.com/banshee-data/camctl/internal/sensor/models"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root of a tuning file. Every scalar is a pointer so a
// partial file only overrides what it names; the Get* methods supply the
// defaults for the rest.
type TuningConfig struct {
	Sensor      *string  `json:"sensor,omitempty" yaml:"sensor,omitempty"`
	ISPRevision *string  `json:"isp_revision,omitempty" yaml:"isp_revision,omitempty"`
	Algorithms  []string `json:"algorithms,omitempty" yaml:"algorithms,omitempty"` // run order

	Agc    *AgcTuning    `json:"agc,omitempty" yaml:"agc,omitempty"`
	Awb    *AwbTuning    `json:"awb,omitempty" yaml:"awb,omitempty"`
	Filter *FilterTuning `json:"filter,omitempty" yaml:"filter,omitempty"`
	Dpf    *DpfTuning    `json:"dpf,omitempty" yaml:"dpf,omitempty"`
	Lsc    *LscTuning    `json:"lsc,omitempty" yaml:"lsc,omitempty"`

	// Sensors describes extra sensor models by gain table, keyed by the
	// identifier they are registered under.
	Sensors map[string]SensorRecord `json:"sensors,omitempty" yaml:"sensors,omitempty"`
}

// AgcTuning holds the exposure loop parameters.
type AgcTuning struct {
	TargetLuminance *float64 `json:"target_luminance,omitempty" yaml:"target_luminance,omitempty"`
	Speed           *float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	InitialExposure *string  `json:"initial_exposure,omitempty" yaml:"initial_exposure,omitempty"` // duration string like "10ms"
	MaxExposure     *string  `json:"max_exposure,omitempty" yaml:"max_exposure,omitempty"`
}

// AwbTuning holds the white balance loop parameters.
type AwbTuning struct {
	Speed   *float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	MinGain *float64 `json:"min_gain,omitempty" yaml:"min_gain,omitempty"`
	MaxGain *float64 `json:"max_gain,omitempty" yaml:"max_gain,omitempty"`
}

// FilterTuning holds the start-up filter strengths.
type FilterTuning struct {
	Sharpness *float64 `json:"sharpness,omitempty" yaml:"sharpness,omitempty"` // 0..10
	Denoise   *int     `json:"denoise,omitempty" yaml:"denoise,omitempty"`     // 0..3
}

// DpfTuning holds the start-up denoise pre-filter state.
type DpfTuning struct {
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// LscTuning holds the lens shading table.
type LscTuning struct {
	Table []uint16 `json:"table,omitempty" yaml:"table,omitempty"`
}

// GainTable is a measured gain to register code mapping.
type GainTable struct {
	Gains []float64 `json:"gains" yaml:"gains"`
	Codes []float64 `json:"codes" yaml:"codes"`
}

// SensorRecord describes a sensor model by table.
type SensorRecord struct {
	Delays               sensor.Delays    `json:"delays" yaml:"delays"`
	GainTable            GainTable        `json:"gain_table" yaml:"gain_table"`
	FrameIntegrationDiff uint32           `json:"frame_integration_diff" yaml:"frame_integration_diff"`
	Sensitivity          sensor.Staircase `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
}

// Table converts the record to the model package's table form.
func (r SensorRecord) Table() models.Table {
	return models.Table{
		Delays:               r.Delays,
		Gains:                r.GainTable.Gains,
		Codes:                r.GainTable.Codes,
		FrameIntegrationDiff: r.FrameIntegrationDiff,
		Sensitivity:          r.Sensitivity,
	}
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a config with every default spelled out.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		Sensor:      ptrString(defaultSensor),
		ISPRevision: ptrString(defaultISPRevision),
		Algorithms:  append([]string(nil), DefaultAlgorithms...),
		Agc: &AgcTuning{
			TargetLuminance: ptrFloat64(defaultTargetLuminance),
			Speed:           ptrFloat64(defaultAgcSpeed),
			InitialExposure: ptrString(defaultInitialExposure.String()),
		},
		Awb: &AwbTuning{
			Speed:   ptrFloat64(defaultAwbSpeed),
			MinGain: ptrFloat64(defaultAwbMinGain),
			MaxGain: ptrFloat64(defaultAwbMaxGain),
		},
		Filter: &FilterTuning{
			Sharpness: ptrFloat64(0),
			Denoise:   ptrInt(0),
		},
		Dpf: &DpfTuning{Enabled: ptrBool(false)},
	}
}

// DefaultAlgorithms is the algorithm set and order used when a tuning file
// does not list one.
var DefaultAlgorithms = []string{"agc", "awb", "cproc", "dpf", "filter", "lsc"}

const (
	defaultSensor          = "imx219"
	defaultISPRevision     = "v10"
	defaultTargetLuminance = 0.16
	defaultAgcSpeed        = 0.2
	defaultInitialExposure = 10 * time.Millisecond
	defaultAwbSpeed        = 0.2
	defaultAwbMinGain      = 0.25
	defaultAwbMaxGain      = 8.0
)

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file is validated to ensure it has a .json, .yaml or .yml extension
// and is under the max file size. Fields omitted from the file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/ipa/algorithms/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ISPRevision != nil {
		switch *c.ISPRevision {
		case "v10", "v11", "v12", "v13":
		default:
			return fmt.Errorf("isp_revision must be one of v10, v11, v12, v13, got %q", *c.ISPRevision)
		}
	}

	seen := make(map[string]bool, len(c.Algorithms))
	for _, name := range c.Algorithms {
		if seen[name] {
			return fmt.Errorf("algorithm %q listed twice", name)
		}
		seen[name] = true
	}

	if a := c.Agc; a != nil {
		if a.TargetLuminance != nil && (*a.TargetLuminance <= 0 || *a.TargetLuminance >= 1) {
			return fmt.Errorf("agc.target_luminance must be between 0 and 1, got %f", *a.TargetLuminance)
		}
		if a.Speed != nil && (*a.Speed <= 0 || *a.Speed > 1) {
			return fmt.Errorf("agc.speed must be in (0, 1], got %f", *a.Speed)
		}
		for name, s := range map[string]*string{"initial_exposure": a.InitialExposure, "max_exposure": a.MaxExposure} {
			if s == nil || *s == "" {
				continue
			}
			if d, err := time.ParseDuration(*s); err != nil {
				return fmt.Errorf("invalid agc.%s '%s': %w", name, *s, err)
			} else if d <= 0 {
				return fmt.Errorf("agc.%s must be positive, got %s", name, *s)
			}
		}
	}

	if a := c.Awb; a != nil {
		if a.Speed != nil && (*a.Speed <= 0 || *a.Speed > 1) {
			return fmt.Errorf("awb.speed must be in (0, 1], got %f", *a.Speed)
		}
		if c.GetAwbMinGain() <= 0 || c.GetAwbMinGain() >= c.GetAwbMaxGain() {
			return fmt.Errorf("awb gain range [%g, %g] invalid", c.GetAwbMinGain(), c.GetAwbMaxGain())
		}
	}

	if f := c.Filter; f != nil {
		if f.Sharpness != nil && (*f.Sharpness < 0 || *f.Sharpness > 10) {
			return fmt.Errorf("filter.sharpness must be between 0 and 10, got %f", *f.Sharpness)
		}
		if f.Denoise != nil && (*f.Denoise < 0 || *f.Denoise > 3) {
			return fmt.Errorf("filter.denoise must be between 0 and 3, got %d", *f.Denoise)
		}
	}

	for _, id := range c.SensorIDs() {
		if _, err := models.NewTabulated(c.Sensors[id].Table()); err != nil {
			return fmt.Errorf("sensors.%s: %w", id, err)
		}
	}

	return nil
}

// SensorIDs returns the identifiers of the tabulated sensors, sorted.
func (c *TuningConfig) SensorIDs() []string {
	ids := make([]string, 0, len(c.Sensors))
	for id := range c.Sensors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RegisterSensors registers every tabulated sensor with reg.
func (c *TuningConfig) RegisterSensors(reg *sensor.Registry) error {
	for _, id := range c.SensorIDs() {
		if err := models.RegisterTabulated(reg, id, c.Sensors[id].Table()); err != nil {
			return err
		}
	}
	return nil
}

// GetSensor returns the sensor identifier or the default.
func (c *TuningConfig) GetSensor() string {
	if c.Sensor == nil || *c.Sensor == "" {
		return defaultSensor
	}
	return *c.Sensor
}

// GetISPRevision returns the ISP revision name or the default.
func (c *TuningConfig) GetISPRevision() string {
	if c.ISPRevision == nil || *c.ISPRevision == "" {
		return defaultISPRevision
	}
	return *c.ISPRevision
}

// GetAlgorithms returns the algorithm run order or the default.
func (c *TuningConfig) GetAlgorithms() []string {
	if len(c.Algorithms) == 0 {
		return append([]string(nil), DefaultAlgorithms...)
	}
	return append([]string(nil), c.Algorithms...)
}

// GetTargetLuminance returns the agc.target_luminance value or the default.
func (c *TuningConfig) GetTargetLuminance() float64 {
	if c.Agc == nil || c.Agc.TargetLuminance == nil {
		return defaultTargetLuminance
	}
	return *c.Agc.TargetLuminance
}

// GetAgcSpeed returns the agc.speed value or the default.
func (c *TuningConfig) GetAgcSpeed() float64 {
	if c.Agc == nil || c.Agc.Speed == nil {
		return defaultAgcSpeed
	}
	return *c.Agc.Speed
}

// GetInitialExposure parses and returns agc.initial_exposure.
func (c *TuningConfig) GetInitialExposure() time.Duration {
	if c.Agc == nil {
		return defaultInitialExposure
	}
	return parseDuration(c.Agc.InitialExposure, defaultInitialExposure)
}

// GetMaxExposure parses and returns agc.max_exposure. Zero means the
// session's own limit applies.
func (c *TuningConfig) GetMaxExposure() time.Duration {
	if c.Agc == nil {
		return 0
	}
	return parseDuration(c.Agc.MaxExposure, 0)
}

// GetAwbSpeed returns the awb.speed value or the default.
func (c *TuningConfig) GetAwbSpeed() float64 {
	if c.Awb == nil || c.Awb.Speed == nil {
		return defaultAwbSpeed
	}
	return *c.Awb.Speed
}

// GetAwbMinGain returns the awb.min_gain value or the default.
func (c *TuningConfig) GetAwbMinGain() float64 {
	if c.Awb == nil || c.Awb.MinGain == nil {
		return defaultAwbMinGain
	}
	return *c.Awb.MinGain
}

// GetAwbMaxGain returns the awb.max_gain value or the default.
func (c *TuningConfig) GetAwbMaxGain() float64 {
	if c.Awb == nil || c.Awb.MaxGain == nil {
		return defaultAwbMaxGain
	}
	return *c.Awb.MaxGain
}

// GetSharpness returns the filter.sharpness value or the default.
func (c *TuningConfig) GetSharpness() float64 {
	if c.Filter == nil || c.Filter.Sharpness == nil {
		return 0
	}
	return *c.Filter.Sharpness
}

// GetDenoise returns the filter.denoise value or the default.
func (c *TuningConfig) GetDenoise() int {
	if c.Filter == nil || c.Filter.Denoise == nil {
		return 0
	}
	return *c.Filter.Denoise
}

// GetDpfEnabled returns the dpf.enabled value or the default.
func (c *TuningConfig) GetDpfEnabled() bool {
	if c.Dpf == nil || c.Dpf.Enabled == nil {
		return false
	}
	return *c.Dpf.Enabled
}

// GetLscTable returns a copy of the lens shading table, nil if unset.
func (c *TuningConfig) GetLscTable() []uint16 {
	if c.Lsc == nil || len(c.Lsc.Table) == 0 {
		return nil
	}
	return append([]uint16(nil), c.Lsc.Table...)
}

func parseDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}
