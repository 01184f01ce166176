package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagerender/pagerender/internal/rendering"
	"github.com/pagerender/pagerender/internal/schemas"
)

func boolPtr(b bool) *bool { return &b }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"dpi": 150,
		"width": 800,
		"crop": [0, 0, 400, 300],
		"gray": true,
		"antialias": false,
		"format": "jpeg",
		"jpeg_quality": 80,
		"workers": 4,
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := &Config{
		DPI:         150,
		Width:       800,
		Crop:        []int{0, 0, 400, 300},
		Gray:        true,
		Antialias:   boolPtr(false),
		Format:      "jpeg",
		JPEGQuality: 80,
		Workers:     4,
		Verbose:     true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestParseConfig_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown field", `{"resolution": 150}`},
		{"dpi wrong type", `{"dpi": "high"}`},
		{"dpi zero", `{"dpi": 0}`},
		{"crop too short", `{"crop": [1, 2, 3]}`},
		{"bad format", `{"format": "gif"}`},
		{"quality too high", `{"jpeg_quality": 101}`},
		{"workers zero", `{"workers": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, cfg)

			var validationErr *schemas.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestParseConfig_CropOrder(t *testing.T) {
	_, err := ParseConfig([]byte(`{"crop": [10, 10, 5, 20]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crop")
}

func TestValidate_OutputDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	cfg := Config{OutputDir: file}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestValidate_StructTags(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative width", Config{Width: -1}},
		{"negative max pixels", Config{MaxPixels: -5}},
		{"dpi too high", Config{DPI: 5000}},
		{"bad format", Config{Format: "bmp"}},
		{"negative crop", Config{Crop: []int{-1, 0, 4, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{DPI: 200, Format: "jpeg", Gray: true}
	merged := cfg.MergeWithDefaults(Defaults())

	want := Config{
		DPI:         200,
		Antialias:   boolPtr(true),
		OutputDir:   ".",
		Format:      "jpeg",
		JPEGQuality: 90,
		Gray:        true,
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("MergeWithDefaults() mismatch (-want +got):\n%s", diff)
	}

	// The receiver is left untouched.
	assert.Nil(t, cfg.Antialias)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{DPI: 96, Width: 100}
	merged := cfg.MergeWithDefaults(Config{})
	if diff := cmp.Diff(cfg, merged); diff != "" {
		t.Errorf("MergeWithDefaults() mismatch (-want +got):\n%s", diff)
	}
}

func TestToOptions(t *testing.T) {
	cfg := Config{
		DPI:       144,
		Width:     300,
		Crop:      []int{1, 2, 30, 40},
		Gray:      true,
		Antialias: boolPtr(true),
	}

	want := rendering.Options{
		DPI:       144,
		Width:     300,
		Crop:      image.Rect(1, 2, 30, 40),
		Gray:      true,
		Antialias: true,
	}
	if diff := cmp.Diff(want, cfg.ToOptions()); diff != "" {
		t.Errorf("ToOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestToOptions_UnsetAntialias(t *testing.T) {
	opts := (&Config{}).ToOptions()
	assert.False(t, opts.Antialias)
	assert.True(t, opts.Crop.Empty())
}
