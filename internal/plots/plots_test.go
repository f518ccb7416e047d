package plots

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/camctl/internal/sensor"
	"github.com/banshee-data/camctl/internal/sensor/models"
	"github.com/banshee-data/camctl/internal/testutil"
	"github.com/banshee-data/camctl/internal/tracedb"
)

func TestCurvePoints(t *testing.T) {
	m := testutil.NewFakeModel(sensor.Delays{})
	pts := CurvePoints(m, 1, 2, 0.25)
	require.Len(t, pts, 5)
	assert.Equal(t, 1.0, pts[0].X)
	assert.Equal(t, 2.0, pts[4].X)
	for _, p := range pts {
		assert.LessOrEqual(t, p.Y, p.X)
		assert.InDelta(t, p.X, p.Y, 1.0/16)
	}

	assert.Nil(t, CurvePoints(m, 2, 1, 0.1))
	assert.Nil(t, CurvePoints(m, 1, 2, 0))
}

func TestGainCurvesWritesPNG(t *testing.T) {
	reg := sensor.NewRegistry()
	require.NoError(t, models.RegisterBuiltin(reg))

	var named []NamedModel
	for _, id := range []string{"imx219", "imx477", "ov5647"} {
		m, err := reg.Create(id)
		require.NoError(t, err)
		named = append(named, NamedModel{ID: id, Model: m})
	}
	named = append(named, NamedModel{ID: "fake", Model: &stubNoLimits{}})

	path := filepath.Join(t.TempDir(), "gain.png")
	require.NoError(t, GainCurves(named, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "not a PNG file")

	assert.Error(t, GainCurves(nil, path))
}

type stubNoLimits struct{}

func (stubNoLimits) GainCode(g float64) uint32            { return uint32(g * 4) }
func (stubNoLimits) Gain(c uint32) float64                { return float64(c) / 4 }
func (stubNoLimits) Delays() sensor.Delays                { return sensor.Delays{} }
func (stubNoLimits) ModeSensitivity(sensor.Mode) float64 { return 1 }

func TestTimeline(t *testing.T) {
	frames := []tracedb.Frame{
		{SessionID: "abc123", Frame: 0, RequestedExposure: 666, AppliedExposure: 666, RequestedGain: 1, AppliedGain: 1, MeanLuma: 0.05},
		{SessionID: "abc123", Frame: 1, RequestedExposure: 900, AppliedExposure: 666, RequestedGain: 1, AppliedGain: 1, MeanLuma: 0.05},
		{SessionID: "abc123", Frame: 2, RequestedExposure: 1100, AppliedExposure: 900, RequestedGain: 1.5, AppliedGain: 1, MeanLuma: 0.07},
	}

	var buf bytes.Buffer
	require.NoError(t, Timeline(&buf, "trace", frames))
	html := buf.String()
	assert.Contains(t, html, "Exposure (lines)")
	assert.Contains(t, html, "Mean luminance")
	assert.Contains(t, html, "session=abc123 frames=3")

	assert.Error(t, Timeline(&buf, "empty", nil))
}
