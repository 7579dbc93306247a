// Package config resolves pf settings from config files and the
// environment.
//
// Sources, strongest first: command-line flags (applied by the caller),
// process environment, .pf.kdl, pyproject.toml [tool.pf], built-in
// defaults. Discovery walks up from the working directory and stops at
// the first directory providing either file; .pf.kdl wins when both sit
// in the same directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	pferrors "github.com/standardbeagle/pf/internal/errors"
	"github.com/standardbeagle/pf/internal/logging"
)

type Config struct {
	Jobs       int      // parallel extraction workers, 0 = one per CPU
	Type       string   // candidate filter: "py" (default) or "all"
	Gitignore  bool     // honor .gitignore rules during directory walks
	Suggest    bool     // offer near-miss names on zero matches
	IgnoreDirs []string // pruned directory names, extends the built-in set
	DisableRG  bool     // never invoke the rg prefilter
	Source     string   // file the settings came from, empty for defaults
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{Type: "py"}
}

// LoadDotenv loads a .env file from the working directory when present.
// Existing process environment always wins; a missing or unreadable .env
// is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Load reads configuration from an explicit file. Unlike discovery, the
// file must exist. The format is chosen by file name: a .toml file is
// read as a pyproject [tool.pf] table, anything else as .pf.kdl syntax.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, pferrors.NewConfigError(path, "", err)
	}
	if strings.HasSuffix(path, ".toml") {
		cfg, found, err := loadPyproject(path)
		if err != nil {
			return nil, err
		}
		if !found {
			cfg = Default()
			cfg.Source = path
		}
		return cfg, nil
	}
	return loadKDL(path)
}

// Discover walks up from dir looking for a .pf.kdl or a pyproject.toml
// carrying a [tool.pf] table. The nearest directory providing one wins; a
// pyproject.toml without the table does not stop the walk. Absence of
// both all the way up yields the defaults.
func Discover(dir string) (*Config, error) {
	d, err := filepath.Abs(dir)
	if err != nil {
		return Default(), nil
	}
	for {
		kdlPath := filepath.Join(d, ".pf.kdl")
		if _, err := os.Stat(kdlPath); err == nil {
			return loadKDL(kdlPath)
		}

		tomlPath := filepath.Join(d, "pyproject.toml")
		if _, err := os.Stat(tomlPath); err == nil {
			cfg, found, err := loadPyproject(tomlPath)
			if err != nil {
				return nil, err
			}
			if found {
				return cfg, nil
			}
		}

		parent := filepath.Dir(d)
		if parent == d {
			return Default(), nil
		}
		d = parent
	}
}

// ApplyEnv overlays environment variables onto file-derived settings.
// PF_JOBS overrides jobs; PF_DISABLE_RG=1 forces full scans. Other
// PF_DISABLE_RG values are ignored rather than re-enabling the prefilter.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PF_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Jobs = n
		} else {
			logging.Default("config").Warn("ignoring invalid PF_JOBS", "value", v)
		}
	}
	if os.Getenv("PF_DISABLE_RG") == "1" {
		c.DisableRG = true
	}
}

func (c *Config) validate() error {
	if c.Jobs < 0 {
		return pferrors.NewConfigError(c.Source, "jobs", fmt.Errorf("must be >= 0, got %d", c.Jobs))
	}
	switch c.Type {
	case "", "py", "all":
	default:
		return pferrors.NewConfigError(c.Source, "type", fmt.Errorf("must be %q or %q, got %q", "py", "all", c.Type))
	}
	return nil
}
