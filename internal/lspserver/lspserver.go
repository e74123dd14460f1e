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

// Package lspserver is the transport boundary: it wires a
// github.com/tliron/glsp server over stdio, handles the standard
// textDocument lifecycle notifications by feeding internal/workspace,
// and dispatches the five sharpfocus/* request methods to
// internal/orchestrator, translating its results into the wire shapes
// spec.md section 6 specifies.
//
// Every dispatch recovers from a panic and reports it as an LSP error
// response rather than letting it reach glsp's request loop: a single
// malformed document must never take the whole server down (spec.md
// section 7's "input invariant violated" / "programmer error" rows).
package lspserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/sharpfocus/sharpfocus/internal/cache"
	"github.com/sharpfocus/sharpfocus/internal/config"
	"github.com/sharpfocus/sharpfocus/internal/orchestrator"
	"github.com/sharpfocus/sharpfocus/internal/workspace"
)

const serverName = "sharpfocusd"

// Server bundles the collaborators a running sharpfocus daemon needs:
// the open-document table, the analysis cache and orchestrator built on
// top of it, and the logger every handler reports through.
type Server struct {
	ws   *workspace.Workspace
	orch *orchestrator.Orchestrator
	log  *slog.Logger
}

// New builds a Server. cfg may be nil (config.Default() is used);
// logger may be nil (slog.Default() is used).
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ws := workspace.New()
	return &Server{
		ws:   ws,
		orch: orchestrator.New(ws, cache.New(), cfg, logger, nil),
		log:  logger,
	}
}

// RunStdio builds the glsp protocol handler, wraps it with the
// sharpfocus/* dispatcher, and serves it over stdio until the client
// shuts the connection down.
func (s *Server) RunStdio() error {
	handler := s.baseHandler()
	d := &dispatcher{base: handler, server: s}
	srv := glspserver.NewServer(d, serverName, false)
	return srv.RunStdio()
}

func (s *Server) baseHandler() *protocol.Handler {
	handler := &protocol.Handler{}
	handler.Initialize = func(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
		capabilities := handler.CreateServerCapabilities()
		full := protocol.TextDocumentSyncKindFull
		capabilities.TextDocumentSync = full
		version := "0.1.0"
		return protocol.InitializeResult{
			Capabilities: capabilities,
			ServerInfo: &protocol.InitializeResultServerInfo{
				Name:    serverName,
				Version: &version,
			},
		}, nil
	}
	handler.Initialized = func(context *glsp.Context, params *protocol.InitializedParams) error {
		return nil
	}
	handler.Shutdown = func(context *glsp.Context) error {
		return nil
	}
	handler.TextDocumentDidOpen = func(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
		s.ws.Open(string(params.TextDocument.URI), params.TextDocument.Text, int(params.TextDocument.Version))
		return nil
	}
	handler.TextDocumentDidChange = func(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
		uri := string(params.TextDocument.URI)
		for _, change := range params.ContentChanges {
			if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
				s.ws.Change(uri, whole.Text, int(params.TextDocument.Version))
			}
		}
		s.orch.InvalidateDocument(uri)
		return nil
	}
	handler.TextDocumentDidClose = func(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
		uri := string(params.TextDocument.URI)
		s.ws.Close(uri)
		s.orch.InvalidateDocument(uri)
		return nil
	}
	return handler
}

// dispatcher implements glsp.Handler: it intercepts the sharpfocus/*
// method names and falls through to base for everything else.
type dispatcher struct {
	base   *protocol.Handler
	server *Server
}

func (d *dispatcher) Handle(context *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	switch context.Method {
	case "sharpfocus/focus":
		return d.dispatch(context, d.server.handleFocus)
	case "sharpfocus/focusMode":
		return d.dispatch(context, d.server.handleFocusMode)
	case "sharpfocus/flowAnalysis":
		return d.dispatch(context, d.server.handleFlowAnalysis)
	case "sharpfocus/backwardSlice":
		return d.dispatch(context, d.server.handleBackwardSlice)
	case "sharpfocus/forwardSlice":
		return d.dispatch(context, d.server.handleForwardSlice)
	default:
		return d.base.Handle(context)
	}
}

// dispatch decodes the common {textDocument, position} request shape,
// invokes handle, and recovers any panic into an error response so a
// single bad request cannot take the server down.
func (d *dispatcher) dispatch(context *glsp.Context, handle func(documentPositionParams) (any, error)) (r any, validMethod bool, validParams bool, err error) {
	validMethod = true
	defer func() {
		if rec := recover(); rec != nil {
			d.server.log.Error("sharpfocus request handler panicked", "method", context.Method, "recovered", rec)
			err = fmt.Errorf("sharpfocus: internal error handling %s: %v", context.Method, rec)
		}
	}()

	var params documentPositionParams
	if unmarshalErr := json.Unmarshal(context.Params, &params); unmarshalErr != nil {
		return nil, true, false, fmt.Errorf("sharpfocus: decoding %s params: %w", context.Method, unmarshalErr)
	}
	validParams = true

	r, err = handle(params)
	var invalid *orchestrator.InvalidStateError
	if errors.As(err, &invalid) {
		d.server.log.Error("sharpfocus request hit an invalid state", "method", context.Method, "error", err)
	}
	return r, validMethod, validParams, err
}

// documentPositionParams is the request shape shared by every
// sharpfocus/* method: {textDocument: {uri}, position: {line, character}}.
type documentPositionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"position"`
}

func (p documentPositionParams) pos() orchestrator.Position {
	return orchestrator.Position{Line: p.Position.Line, Character: p.Position.Character}
}

func (s *Server) handleFocus(p documentPositionParams) (any, error) {
	resp, err := s.orch.Focus(context.Background(), p.TextDocument.URI, p.pos())
	if err != nil || resp == nil {
		return nil, err
	}
	return toFocusWire(*resp), nil
}

func (s *Server) handleFocusMode(p documentPositionParams) (any, error) {
	resp, err := s.orch.FocusMode(context.Background(), p.TextDocument.URI, p.pos())
	if err != nil || resp == nil {
		return nil, err
	}
	return toFocusModeWire(*resp), nil
}

func (s *Server) handleFlowAnalysis(p documentPositionParams) (any, error) {
	resp, err := s.orch.FlowAnalysis(context.Background(), p.TextDocument.URI, p.pos())
	if err != nil || resp == nil {
		return nil, err
	}
	return toFlowAnalysisWire(*resp), nil
}

func (s *Server) handleBackwardSlice(p documentPositionParams) (any, error) {
	resp, err := s.orch.BackwardSlice(context.Background(), p.TextDocument.URI, p.pos())
	if err != nil || resp == nil {
		return nil, err
	}
	return toSliceWire(*resp), nil
}

func (s *Server) handleForwardSlice(p documentPositionParams) (any, error) {
	resp, err := s.orch.ForwardSlice(context.Background(), p.TextDocument.URI, p.pos())
	if err != nil || resp == nil {
		return nil, err
	}
	return toSliceWire(*resp), nil
}
