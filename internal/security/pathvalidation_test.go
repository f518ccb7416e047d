package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	root := t.TempDir()
	safe := filepath.Join(root, "traces")
	other := filepath.Join(root, "elsewhere")
	require.NoError(t, os.MkdirAll(safe, 0o755))
	require.NoError(t, os.MkdirAll(other, 0o755))
	require.NoError(t, os.Symlink(other, filepath.Join(safe, "link")))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"new file", filepath.Join(safe, "run.sqlite"), false},
		{"new nested file", filepath.Join(safe, "day1", "timeline.html"), false},
		{"the directory itself", safe, false},
		{"dot dot escape", filepath.Join(safe, "..", "run.sqlite"), true},
		{"sibling directory", filepath.Join(other, "run.sqlite"), true},
		{"through symlinked parent", filepath.Join(safe, "link", "run.sqlite"), true},
		{"absolute system path", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, safe)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrOutsideAllowed), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	assert.NoError(t, ValidateOutputPath(filepath.Join(b, "gain.png"), a, b))
	assert.ErrorIs(t, ValidateOutputPath("/etc/gain.png", a, b), ErrOutsideAllowed)
	assert.Error(t, ValidateOutputPath(filepath.Join(a, "gain.png")))
}

func TestValidateExportPath(t *testing.T) {
	assert.NoError(t, ValidateExportPath("timeline.html"))
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "trace.sqlite")))
	assert.Error(t, ValidateExportPath("/etc/trace.sqlite"))
}
