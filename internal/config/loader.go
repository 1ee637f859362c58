// Package config loads the optional .hezi configuration file.
//
// The file is in ini format, and is discovered by walking the directory hierarchy upwards from the working directory:
//
//	[create]
//	compression = zstd
//	level = 3
//	overwrite = false
//	include-hidden = false
//
//	[extract]
//	overwrite = false
//	show-hidden = false
//
// Command-line flags always take precedence over the values in the file.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file.
const Name = ".hezi"

// Loader can be used for loading .hezi configuration.
//
// The zero value is ready for use and behaves as if the file is empty.
type Loader struct {
	cfg *ini.File
}

// Load will traverse the directory hierarchy upwards from the working directory to find the first ".hezi" file
// available and load its contents into the Loader.
//
// The name of the .hezi file is returned, which is empty if none was found.
func (l *Loader) Load(ctx context.Context) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return l.LoadFrom(ctx, dir)
}

// LoadFrom is a variant of Load that starts searching from the given directory instead.
func (l *Loader) LoadFrom(ctx context.Context, dir string) (string, error) {
	l.cfg = ini.Empty()

	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		if err = ctx.Err(); err != nil {
			return "", err
		}

		path := filepath.Join(cur, Name)
		fi, err := os.Stat(path)
		switch {
		case err == nil && !fi.IsDir():
			if l.cfg, err = ini.Load(path); err != nil {
				l.cfg = ini.Empty()
				return path, err
			}

			return path, nil

		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", nil
		}

		cur = parent
	}
}

// section returns the named section, or nil if there is no such section.
func (l *Loader) section(name string) *ini.Section {
	if l.cfg == nil {
		return nil
	}

	sec, err := l.cfg.GetSection(name)
	if err != nil {
		return nil
	}

	return sec
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}
