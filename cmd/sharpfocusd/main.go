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

package main

import (
	"log/slog"
	"os"

	"github.com/sharpfocus/sharpfocus/internal/config"
	"github.com/sharpfocus/sharpfocus/internal/lspserver"
)

func main() {
	config.FlagSet.Parse(os.Args[1:])

	cfg, err := config.ReadConfig()
	if err != nil {
		slog.Error("failed to read configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg != nil {
		_ = level.UnmarshalText([]byte(cfg.LogLevel))
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv := lspserver.New(cfg, logger)
	if err := srv.RunStdio(); err != nil {
		logger.Error("sharpfocusd exited with an error", "error", err)
		os.Exit(1)
	}
}
