package chartex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/chartex/llm"
)

// Config holds all configuration for a chartex session.
type Config struct {
	// Vision is the inference provider used for chart extraction.
	Vision llm.Config `json:"vision" yaml:"vision"`

	// Convert tunes document-to-image conversion.
	Convert ConvertConfig `json:"convert" yaml:"convert"`

	// DBPath is the path to the session bookkeeping database. Empty
	// keeps it in memory so nothing outlives the session.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// ConvertConfig tunes the document-conversion collaborator.
type ConvertConfig struct {
	// MaxPages caps how many pages of a document are converted.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// MaxImageSide is the longest image edge sent to inference, in pixels.
	MaxImageSide int `json:"max_image_side" yaml:"max_image_side"`

	// JPEGQuality is the page image re-encode quality (1-100).
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`

	// RenderScale is the PDF rasterization scale relative to 72 DPI.
	RenderScale float64 `json:"render_scale" yaml:"render_scale"`
}

// DefaultConfig returns a Config with sensible defaults for local
// inference and in-memory bookkeeping.
func DefaultConfig() Config {
	return Config{
		Vision: llm.Config{
			Provider: "ollama",
			Model:    "llama3.2-vision",
			BaseURL:  "http://localhost:11434",
		},
		Convert: ConvertConfig{
			MaxPages:     30,
			MaxImageSide: 1400,
			JPEGQuality:  85,
			RenderScale:  1.5,
		},
	}
}

// LoadConfig reads a JSON or YAML config file (selected by extension)
// over the defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing JSON config: %w", err)
		}
	}
	return cfg, nil
}
