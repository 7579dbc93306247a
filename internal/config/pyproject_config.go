package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	pferrors "github.com/standardbeagle/pf/internal/errors"
)

// loadPyproject reads the [tool.pf] table from a pyproject.toml:
//
//	[tool.pf]
//	jobs = 8
//	type = "py"
//	gitignore = true
//	ignore_dirs = ["vendor", "tmp"]
//
// The bool result reports whether the table was present at all; discovery
// keeps walking up when it is not.
func loadPyproject(path string) (*Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, pferrors.NewConfigError(path, "", err)
	}

	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, false, pferrors.NewConfigError(path, "", fmt.Errorf("parse TOML: %w", err))
	}

	tool, ok := doc["tool"].(map[string]interface{})
	if !ok {
		return nil, false, nil
	}
	table, ok := tool["pf"].(map[string]interface{})
	if !ok {
		return nil, false, nil
	}

	cfg := Default()
	cfg.Source = path
	if v, ok := tomlInt(table["jobs"]); ok {
		cfg.Jobs = v
	}
	if s, ok := table["type"].(string); ok {
		cfg.Type = s
	}
	if b, ok := table["gitignore"].(bool); ok {
		cfg.Gitignore = b
	}
	if b, ok := table["suggest"].(bool); ok {
		cfg.Suggest = b
	}
	if b, ok := table["disable_rg"].(bool); ok {
		cfg.DisableRG = b
	}
	cfg.IgnoreDirs = append(cfg.IgnoreDirs, tomlStrings(table["ignore_dirs"])...)

	if err := cfg.validate(); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// go-toml decodes TOML integers as int64
func tomlInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func tomlStrings(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
