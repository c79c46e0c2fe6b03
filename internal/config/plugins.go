package config

import (
	"fmt"
	"strings"
	"time"
)

// PluginConfig selects one transformer, filter or emitter by name.
type PluginConfig struct {
	Name    string  `yaml:"name"`
	Options Options `yaml:"options,omitempty"`
}

// Options carries free-form per-plugin settings decoded from YAML.
type Options map[string]any

// String returns the option as a string, or def when missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o.lookup(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the option as a bool, accepting "true"/"false" strings.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(b) {
		case "true", "yes":
			return true
		case "false", "no":
			return false
		}
	}
	return def
}

// Int returns the option as an int.
func (o Options) Int(key string, def int) int {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// Duration returns the option as a duration parsed from a string.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	if s := o.String(key, ""); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}

// StringSlice returns a list option; a single string becomes a one-element list.
func (o Options) StringSlice(key string, def []string) []string {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{list}
	}
	return def
}

// Sub returns a nested option map such as theme: {light: ..., dark: ...}.
func (o Options) Sub(key string) Options {
	v, ok := o.lookup(key)
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case map[string]any:
		return Options(m)
	case Options:
		return m
	}
	return nil
}

func (o Options) lookup(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Names lists plugin names in configured order.
func Names(plugins []PluginConfig) []string {
	out := make([]string, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, p.Name)
	}
	return out
}

// Find returns the configuration entry for name.
func Find(plugins []PluginConfig, name string) (PluginConfig, bool) {
	for _, p := range plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginConfig{}, false
}
