package testutil

import (
	"errors"
	"testing"

	"github.com/banshee-data/camctl/internal/sensor"
)

func TestAssertNoError_NilErr(t *testing.T) {
	t.Parallel()

	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	if fakeT.Failed() {
		t.Error("expected no failure for nil error")
	}
}

func TestAssertError_WithErr(t *testing.T) {
	t.Parallel()

	fakeT := &testing.T{}
	AssertError(fakeT, errors.New("something wrong"))
	if fakeT.Failed() {
		t.Error("expected no failure when error is present")
	}
}

func TestModeFixturesValidate(t *testing.T) {
	t.Parallel()

	for name, m := range map[string]sensor.Mode{
		"1080p":       Mode1080p(),
		"binned by 2": ModeBinned(4608, 2592, 2),
		"binned by 4": ModeBinned(9248, 6944, 4),
	} {
		if err := m.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	m := ModeBinned(4608, 2592, 2)
	if m.Width != 2304 || m.Height != 1296 {
		t.Errorf("ModeBinned size = %dx%d, want 2304x1296", m.Width, m.Height)
	}
}

func TestFakeModel(t *testing.T) {
	t.Parallel()

	m := NewFakeModel(sensor.Delays{Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2})
	if got := m.GainCode(2.5); got != 40 {
		t.Errorf("GainCode(2.5) = %d, want 40", got)
	}
	if got := m.Gain(40); got != 2.5 {
		t.Errorf("Gain(40) = %g, want 2.5", got)
	}

	r := Registry(t, "fake", m)
	got, err := r.Create("fake")
	AssertNoError(t, err)
	if got.Delays().Max() != 2 {
		t.Errorf("Delays().Max() = %d, want 2", got.Delays().Max())
	}
}
