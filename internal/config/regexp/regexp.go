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

// Package regexp wraps the standard library's regexp.Regexp so it can
// be unmarshalled directly from a quoted pattern string in a YAML/JSON
// config document.
package regexp

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Regexp is a regexp.Regexp that knows how to read itself from a single
// quoted pattern string, the shape every pattern takes in config.yaml.
type Regexp struct {
	*regexp.Regexp
}

// UnmarshalJSON compiles the quoted pattern in data. sigs.k8s.io/yaml
// converts YAML to JSON before decoding, so this also serves YAML
// config files.
func (r *Regexp) UnmarshalJSON(data []byte) error {
	var pattern string
	if err := json.Unmarshal(data, &pattern); err != nil {
		return err
	}
	if pattern == "" {
		return fmt.Errorf("regexp: empty pattern")
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.Regexp = compiled
	return nil
}

// MatchString reports whether s matches the pattern. An unset Regexp
// (the zero value) matches nothing.
func (r Regexp) MatchString(s string) bool {
	if r.Regexp == nil {
		return false
	}
	return r.Regexp.MatchString(s)
}
