package config

import (
	"fmt"

	"github.com/nguyengg/hezi/codec"
)

// CreateConfig contains the [create] settings.
type CreateConfig struct {
	// Compression is empty if not configured.
	Compression codec.Compression
	// Level is nil if not configured.
	Level         *int
	Overwrite     bool
	IncludeHidden bool
}

// ForCreate returns the configuration for creating archives.
func (l *Loader) ForCreate() (c CreateConfig, err error) {
	sec := l.section("create")
	if sec == nil {
		return c, nil
	}

	if v := sec.Key("compression").String(); v != "" {
		if c.Compression, err = codec.ParseCompression(v); err != nil {
			return c, fmt.Errorf("invalid [create] compression: %w", err)
		}
	}

	if sec.HasKey("level") {
		level, err := sec.Key("level").Int()
		if err != nil {
			return c, fmt.Errorf("invalid [create] level: %w", err)
		}
		c.Level = &level
	}

	c.Overwrite = sec.Key("overwrite").MustBool(false)
	c.IncludeHidden = sec.Key("include-hidden").MustBool(false)

	return c, nil
}

// ForCreate calls Loader.ForCreate on the DefaultLoader instance.
func ForCreate() (CreateConfig, error) {
	return DefaultLoader.ForCreate()
}

// ExtractConfig contains the [extract] settings.
type ExtractConfig struct {
	Overwrite  bool
	ShowHidden bool
}

// ForExtract returns the configuration for extracting archives.
func (l *Loader) ForExtract() (c ExtractConfig) {
	sec := l.section("extract")
	if sec == nil {
		return c
	}

	c.Overwrite = sec.Key("overwrite").MustBool(false)
	c.ShowHidden = sec.Key("show-hidden").MustBool(false)

	return
}

// ForExtract calls Loader.ForExtract on the DefaultLoader instance.
func ForExtract() ExtractConfig {
	return DefaultLoader.ForExtract()
}
