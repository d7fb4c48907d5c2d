package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetByPath retrieves a config value by dot-notation path (e.g. "server.port").
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		v, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
		val, ok := v[key]
		if !ok {
			return nil, fmt.Errorf("key not found: %s", path)
		}
		current = val
	}
	return current, nil
}

// Sanitize returns a copy of the config with sensitive values masked.
func Sanitize(cfg *Config) *Config {
	copy := *cfg
	if copy.Telegram.Token != "" {
		copy.Telegram.Token = maskString(copy.Telegram.Token)
	}
	if copy.OpenAI.APIKey != "" {
		copy.OpenAI.APIKey = maskString(copy.OpenAI.APIKey)
	}
	return &copy
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns every leaf path in sorted order.
func ListPaths(cfg *Config) []string {
	m, err := toMap(cfg)
	if err != nil {
		return nil
	}
	var paths []string
	flattenMap("", m, &paths)
	sort.Strings(paths)
	return paths
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func flattenMap(prefix string, m map[string]any, paths *[]string) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenMap(path, child, paths)
			continue
		}
		*paths = append(*paths, path)
	}
}
