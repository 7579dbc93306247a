package config

import (
	"fmt"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	pferrors "github.com/standardbeagle/pf/internal/errors"
)

// loadKDL reads a .pf.kdl file. Settings are flat top-level nodes:
//
//	jobs 8
//	type "py"
//	gitignore true
//	suggest true
//	disable_rg false
//	ignore_dirs "vendor" "tmp"
func loadKDL(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pferrors.NewConfigError(path, "", err)
	}

	cfg, err := parseKDL(string(data))
	if err != nil {
		return nil, pferrors.NewConfigError(path, "", err)
	}
	cfg.Source = path

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse KDL: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "jobs":
			if v, ok := firstIntArg(n); ok {
				cfg.Jobs = v
			}
		case "type":
			if s, ok := firstStringArg(n); ok {
				cfg.Type = s
			}
		case "gitignore":
			if b, ok := firstBoolArg(n); ok {
				cfg.Gitignore = b
			}
		case "suggest":
			if b, ok := firstBoolArg(n); ok {
				cfg.Suggest = b
			}
		case "disable_rg":
			if b, ok := firstBoolArg(n); ok {
				cfg.DisableRG = b
			}
		case "ignore_dirs":
			cfg.IgnoreDirs = append(cfg.IgnoreDirs, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

// Helpers over the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs gathers string values from inline arguments
// (ignore_dirs "a" "b") or, when there are none, from child nodes
// (ignore_dirs { "a"; "b" }).
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}
