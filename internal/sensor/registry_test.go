package sensor

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/camctl/internal/ctlerr"
)

type stubModel struct{ delays Delays }

func (s stubModel) GainCode(gain float64) uint32 { return uint32(gain * 16) }
func (s stubModel) Gain(code uint32) float64 { return float64(code) / 16 }
func (s stubModel) Delays() Delays { return s.delays }
func (s stubModel) ModeSensitivity(mode Mode) float64 { return 1.0 }

func stubFactory() ControlModel { return stubModel{delays: Delays{2, 2, 2, 2}} }

func TestRegistryCreate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("stub", stubFactory))

	m, err := r.Create("stub")
	require.NoError(t, err)
	assert.Equal(t, Delays{2, 2, 2, 2}, m.Delays())
	assert.True(t, r.Frozen())
}

func TestRegistryUnknownIdentifier(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("stub", stubFactory))
	before := r.Names()

	m, err := r.Create("imx999")
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ctlerr.ErrConfiguration))
	assert.True(t, errors.Is(err, ErrNotFound))

	var ce *ctlerr.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "imx999", ce.Subject)

	assert.Equal(t, before, r.Names())
	assert.True(t, r.Has("stub"))

	assert.True(t, r.Frozen(), "a failed lookup still ends registration")
	err = r.Register("imx999", stubFactory)
	assert.True(t, errors.Is(err, ErrFrozen), "got %v", err)
	assert.Equal(t, before, r.Names())
}

func TestRegistryRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		factory Factory
		prepare func(r *Registry)
		wantErr error
	}{
		{name: "empty id", id: "", factory: stubFactory},
		{name: "nil factory", id: "stub", factory: nil},
		{
			name:    "duplicate",
			id:      "stub",
			factory: stubFactory,
			prepare: func(r *Registry) { r.MustRegister("stub", stubFactory) },
			wantErr: ErrDuplicate,
		},
		{
			name:    "after first lookup",
			id:      "late",
			factory: stubFactory,
			prepare: func(r *Registry) { _, _ = r.Create("anything") },
			wantErr: ErrFrozen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRegistry()
			if tt.prepare != nil {
				tt.prepare(r)
			}
			err := r.Register(tt.id, tt.factory)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ctlerr.ErrConfiguration))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister("stub", stubFactory)
	assert.Panics(t, func() { r.MustRegister("stub", stubFactory) })
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, id := range []string{"ov5647", "imx219", "imx477"} {
		require.NoError(t, r.Register(id, stubFactory))
	}
	assert.Equal(t, []string{"imx219", "imx477", "ov5647"}, r.Names())
	assert.True(t, r.Has("imx477"))
	assert.False(t, r.Has("imx708"))
	assert.False(t, r.Frozen())
}

func TestRegistryConcurrentLookups(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("stub", stubFactory))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.Create("stub")
			assert.NoError(t, err)
			assert.NotNil(t, m)
		}()
	}
	wg.Wait()
}

func TestDefaultIsSingleton(t *testing.T) {
	t.Parallel()
	assert.Same(t, Default(), Default())
}
