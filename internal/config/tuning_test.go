package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/camctl/internal/sensor"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	// Test that defaults are set via pointers
	if cfg.Sensor == nil || *cfg.Sensor != "imx219" {
		t.Errorf("Expected Sensor imx219, got %v", cfg.Sensor)
	}
	if cfg.Agc == nil || cfg.Agc.TargetLuminance == nil || *cfg.Agc.TargetLuminance != 0.16 {
		t.Errorf("Expected TargetLuminance 0.16, got %v", cfg.Agc)
	}

	// Test getter methods
	if cfg.GetISPRevision() != "v10" {
		t.Errorf("GetISPRevision() = %s, want v10", cfg.GetISPRevision())
	}
	if cfg.GetInitialExposure() != 10*time.Millisecond {
		t.Errorf("GetInitialExposure() = %v, want 10ms", cfg.GetInitialExposure())
	}
	if cfg.GetAwbMaxGain() != 8.0 {
		t.Errorf("GetAwbMaxGain() = %f, want 8.0", cfg.GetAwbMaxGain())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, "imx219", cfg.GetSensor())
	assert.Equal(t, "v10", cfg.GetISPRevision())
	assert.Equal(t, DefaultAlgorithms, cfg.GetAlgorithms())
	assert.Equal(t, 0.16, cfg.GetTargetLuminance())
	assert.Equal(t, 0.2, cfg.GetAgcSpeed())
	assert.Equal(t, 10*time.Millisecond, cfg.GetInitialExposure())
	assert.Equal(t, time.Duration(0), cfg.GetMaxExposure())
	assert.Equal(t, 0.2, cfg.GetAwbSpeed())
	assert.Equal(t, 0.25, cfg.GetAwbMinGain())
	assert.Equal(t, 8.0, cfg.GetAwbMaxGain())
	assert.Equal(t, 0.0, cfg.GetSharpness())
	assert.Equal(t, 0, cfg.GetDenoise())
	assert.False(t, cfg.GetDpfEnabled())
	assert.Nil(t, cfg.GetLscTable())
	assert.Empty(t, cfg.SensorIDs())

	// GetAlgorithms hands out a copy.
	algs := cfg.GetAlgorithms()
	algs[0] = "mutated"
	assert.Equal(t, "agc", DefaultAlgorithms[0])
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "sensor": "ov64a40",
  "isp_revision": "v12",
  "algorithms": ["agc", "cproc"],
  "agc": {"target_luminance": 0.2, "speed": 0.5, "initial_exposure": "4ms", "max_exposure": "30ms"},
  "awb": {"speed": 0.1, "min_gain": 0.5, "max_gain": 4},
  "filter": {"sharpness": 2.5, "denoise": 2},
  "dpf": {"enabled": true},
  "lsc": {"table": [1024, 1100, 1200]}
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ov64a40", cfg.GetSensor())
	assert.Equal(t, "v12", cfg.GetISPRevision())
	assert.Equal(t, []string{"agc", "cproc"}, cfg.GetAlgorithms())
	assert.Equal(t, 0.2, cfg.GetTargetLuminance())
	assert.Equal(t, 0.5, cfg.GetAgcSpeed())
	assert.Equal(t, 4*time.Millisecond, cfg.GetInitialExposure())
	assert.Equal(t, 30*time.Millisecond, cfg.GetMaxExposure())
	assert.Equal(t, 0.1, cfg.GetAwbSpeed())
	assert.Equal(t, 0.5, cfg.GetAwbMinGain())
	assert.Equal(t, 4.0, cfg.GetAwbMaxGain())
	assert.Equal(t, 2.5, cfg.GetSharpness())
	assert.Equal(t, 2, cfg.GetDenoise())
	assert.True(t, cfg.GetDpfEnabled())
	assert.Equal(t, []uint16{1024, 1100, 1200}, cfg.GetLscTable())
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	for name, body := range map[string]string{
		"invalid.json": `{"agc": {"speed": "fast"`,
		"invalid.yaml": "agc: [unterminated",
	} {
		configPath := filepath.Join(tmpDir, name)
		if err := os.WriteFile(configPath, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}
		if _, err := LoadTuningConfig(configPath); err == nil {
			t.Errorf("%s: expected parse error, got nil", name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty config", EmptyTuningConfig(), false},
		{"defaults", DefaultTuningConfig(), false},
		{"unknown revision", &TuningConfig{ISPRevision: ptrString("v9")}, true},
		{"duplicate algorithm", &TuningConfig{Algorithms: []string{"agc", "awb", "agc"}}, true},
		{"target luminance too high", &TuningConfig{Agc: &AgcTuning{TargetLuminance: ptrFloat64(1.5)}}, true},
		{"zero agc speed", &TuningConfig{Agc: &AgcTuning{Speed: ptrFloat64(0)}}, true},
		{"bad initial exposure", &TuningConfig{Agc: &AgcTuning{InitialExposure: ptrString("soon")}}, true},
		{"negative max exposure", &TuningConfig{Agc: &AgcTuning{MaxExposure: ptrString("-1ms")}}, true},
		{"inverted awb range", &TuningConfig{Awb: &AwbTuning{MinGain: ptrFloat64(4), MaxGain: ptrFloat64(2)}}, true},
		{"sharpness out of range", &TuningConfig{Filter: &FilterTuning{Sharpness: ptrFloat64(11)}}, true},
		{"denoise out of range", &TuningConfig{Filter: &FilterTuning{Denoise: ptrInt(4)}}, true},
		{
			"short gain table",
			&TuningConfig{Sensors: map[string]SensorRecord{
				"cam": {GainTable: GainTable{Gains: []float64{1}, Codes: []float64{0}}},
			}},
			true,
		},
		{
			"delay past limit",
			&TuningConfig{Sensors: map[string]SensorRecord{
				"cam": {
					Delays:    sensor.Delays{Exposure: 4294967295, Gain: 2, VBlank: 2, HBlank: 2},
					GainTable: GainTable{Gains: []float64{1, 16}, Codes: []float64{0, 240}},
				},
			}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetTargetLuminance() != 0.16 {
		t.Errorf("Expected 0.16, got %f", cfg.GetTargetLuminance())
	}
	if len(cfg.GetAlgorithms()) != 6 {
		t.Errorf("Expected 6 algorithms, got %v", cfg.GetAlgorithms())
	}
	assert.NotPanics(t, func() { MustLoadDefaultConfig() })
}

func TestLoadExampleYAMLFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, "acme-cam1", cfg.GetSensor())
	assert.Equal(t, "v12", cfg.GetISPRevision())
	assert.Equal(t, []string{"agc", "awb", "cproc", "filter"}, cfg.GetAlgorithms())
	assert.Equal(t, 33*time.Millisecond, cfg.GetMaxExposure())
	assert.Equal(t, []string{"acme-cam1"}, cfg.SensorIDs())

	rec := cfg.Sensors["acme-cam1"]
	assert.Equal(t, sensor.Delays{Exposure: 2, Gain: 1, VBlank: 2, HBlank: 2}, rec.Delays)
	assert.Equal(t, uint32(8), rec.FrameIntegrationDiff)
	assert.Equal(t, sensor.Staircase{{MinBinX: 2, MinScaleX: 2, Factor: 2}}, rec.Sensitivity)

	reg := sensor.NewRegistry()
	require.NoError(t, cfg.RegisterSensors(reg))
	m, err := reg.Create("acme-cam1")
	require.NoError(t, err)
	assert.Equal(t, uint32(96), m.GainCode(2.0))
}

func TestLoadTuningConfigPartial(t *testing.T) {
	// Partial config: only override the AGC target; everything else keeps defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yml")

	if err := os.WriteFile(configPath, []byte("agc:\n  target_luminance: 0.3\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 0.3, cfg.GetTargetLuminance())
	assert.Equal(t, 0.2, cfg.GetAgcSpeed())
	assert.Equal(t, 10*time.Millisecond, cfg.GetInitialExposure())
	assert.Equal(t, "imx219", cfg.GetSensor())
}

func TestLoadTuningConfigRejectsOtherExtensions(t *testing.T) {
	for _, path := range []string{"../../etc/passwd", "/some/path/config.toml", "tuning.JSON"} {
		if _, err := LoadTuningConfig(path); err == nil {
			t.Errorf("Expected error for %q, got nil", path)
		}
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	// Create a file larger than 1MB
	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}
