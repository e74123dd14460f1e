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

// Package sharpfocus exports the daemon's embeddable entry points, for
// callers that want to run the LSP server in-process (e.g. a test
// harness or an editor plugin's host process) rather than exec'ing
// cmd/sharpfocusd over stdio.
package sharpfocus

import (
	"log/slog"

	"github.com/sharpfocus/sharpfocus/internal/config"
	"github.com/sharpfocus/sharpfocus/internal/lspserver"
)

// Server is the embeddable sharpfocus LSP server.
type Server = lspserver.Server

// NewServer builds a Server. cfg may be nil (config.Default() is used);
// logger may be nil (slog.Default() is used).
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	return lspserver.New(cfg, logger)
}

// LoadConfig is a wrapper around the config package's Load function.
var LoadConfig = config.Load

// DefaultConfig is a wrapper around the config package's Default function.
var DefaultConfig = config.Default
