package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at the given YAML-like path and where
// it came from. Paths use dots for nesting and indexes for lists:
//
//	gap_size
//	screen_padding.top
//	tags.0
//	monitors.<output>.x
//	rules.2.match.app_id
//	keybindings.<key>
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

// lookupValue walks the marshaled form of cfg, so every YAML key is
// addressable without a hand-maintained table.
func lookupValue(cfg *Config, path string) (any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	cur := tree
	walked := ""
	for _, part := range strings.Split(path, ".") {
		if walked != "" {
			walked += "."
		}
		walked += part
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("unknown config path %q", walked)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range at %q", part, walked)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("config path %q does not have children", strings.TrimSuffix(walked, "."+part))
		}
	}
	return cur, nil
}
