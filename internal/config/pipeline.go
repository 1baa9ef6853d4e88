package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/a3tai/mcp-paper-parser/internal/extractors"
	"github.com/a3tai/mcp-paper-parser/internal/intelligence"
	"github.com/a3tai/mcp-paper-parser/internal/pdf"
	"github.com/a3tai/mcp-paper-parser/internal/reflow"
	"github.com/a3tai/mcp-paper-parser/internal/sections"
)

// PipelineConfig collects the settings of every parse stage. The pipeline
// receives it by value and never reads the environment itself.
type PipelineConfig struct {
	Loader     pdf.LoaderOptions            `mapstructure:"loader" json:"loader"`
	Analysis   intelligence.StructureConfig `mapstructure:"analysis" json:"analysis"`
	Geometry   intelligence.GeometryConfig  `mapstructure:"geometry" json:"geometry"`
	Captions   intelligence.CaptionConfig   `mapstructure:"captions" json:"captions"`
	Figures    intelligence.FigureConfig    `mapstructure:"figures" json:"figures"`
	Filter     intelligence.FilterConfig    `mapstructure:"filter" json:"filter"`
	Reflow     reflow.Config                `mapstructure:"reflow" json:"reflow"`
	Cleanup    reflow.CleanupConfig         `mapstructure:"cleanup" json:"cleanup"`
	Sections   sections.Config              `mapstructure:"sections" json:"sections"`
	Indexing   sections.IndexingConfig      `mapstructure:"indexing" json:"indexing"`
	Extraction extractors.Config            `mapstructure:"extraction" json:"extraction"`
}

// DefaultPipelineConfig returns the documented defaults of every stage.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Loader:     pdf.DefaultLoaderOptions(),
		Analysis:   intelligence.DefaultStructureConfig(),
		Geometry:   intelligence.DefaultGeometryConfig(),
		Captions:   intelligence.DefaultCaptionConfig(),
		Figures:    intelligence.DefaultFigureConfig(),
		Filter:     intelligence.DefaultFilterConfig(),
		Reflow:     reflow.DefaultConfig(),
		Cleanup:    reflow.DefaultCleanupConfig(),
		Sections:   sections.DefaultConfig(),
		Indexing:   sections.DefaultIndexingConfig(),
		Extraction: extractors.DefaultConfig(),
	}
}

// Validate checks every stage configuration.
func (c PipelineConfig) Validate() error {
	var errs []error
	for _, v := range []interface{ Validate() error }{
		c.Analysis, c.Geometry, c.Captions, c.Figures, c.Sections, c.Indexing,
	} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Loader.MaxPages < 0 || c.Loader.MinFirstPageChars < 0 {
		errs = append(errs, errors.New("loader limits must be >= 0"))
	}
	return errors.Join(errs...)
}

// LoadPipelineConfig reads a YAML file over the defaults. Keys the file
// leaves out keep their default; unknown keys are rejected. An empty path
// returns the defaults.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading pipeline config %s: %w", path, err)
	}
	if err := v.UnmarshalExact(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding pipeline config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}
	return cfg, nil
}
