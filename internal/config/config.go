// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config implements the ambient configuration layer: which
// documents the engine should skip, how verbosely to log, and how much
// container-range output a slice may surface.
package config

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"sigs.k8s.io/yaml"

	cfgregexp "github.com/sharpfocus/sharpfocus/internal/config/regexp"
)

// FlagSet should be reused by cmd/sharpfocusd to expose the -config flag.
var FlagSet flag.FlagSet
var configFile string

func init() {
	FlagSet.StringVar(&configFile, "config", "sharpfocus.yaml", "path to the sharpfocus configuration file")
}

// Config controls ambient engine behavior. It is deliberately small:
// the core slicing components described by the specification take no
// configuration of their own.
type Config struct {
	// ExcludePaths are workspace-relative path patterns the Orchestrator
	// refuses to analyze (generated code, vendored dependencies).
	ExcludePaths []cfgregexp.Regexp `json:"excludePaths,omitempty"`
	// LogLevel is one of slog's level names: debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty"`
	// MaxContainerRanges caps the number of container ranges a single
	// slice response may report; zero means unbounded.
	MaxContainerRanges int `json:"maxContainerRanges,omitempty"`
}

// Default returns the zero-configuration Config: nothing excluded, info
// logging, no cap on container ranges.
func Default() *Config {
	return &Config{LogLevel: "info"}
}

// IsExcluded reports whether path matches any configured exclusion
// pattern.
func (c *Config) IsExcluded(path string) bool {
	for _, p := range c.ExcludePaths {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// Load reads and parses the configuration file at path. A missing file
// is not an error: the daemon must still start with no config present,
// so Default() is returned instead.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return c, nil
}

var (
	readOnce  sync.Once
	cached    *Config
	cachedErr error
)

// ReadConfig loads the configuration named by the -config flag exactly
// once per process, caching the result for every later caller.
func ReadConfig() (*Config, error) {
	readOnce.Do(func() {
		cached, cachedErr = Load(configFile)
	})
	return cached, cachedErr
}
