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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load on a missing file must not error, got %v", err)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want the default %q", c.LogLevel, "info")
	}
}

func TestLoadParsesExcludePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sharpfocus.yaml")
	contents := "excludePaths:\n  - \"_test\\\\.go$\"\n  - \"^vendor/\"\nlogLevel: debug\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", c.LogLevel, "debug")
	}
	if !c.IsExcluded("foo_test.go") {
		t.Errorf("foo_test.go should match the _test\\.go$ exclusion")
	}
	if !c.IsExcluded("vendor/x/y.go") {
		t.Errorf("vendor/x/y.go should match the ^vendor/ exclusion")
	}
	if c.IsExcluded("main.go") {
		t.Errorf("main.go should not be excluded")
	}
}
