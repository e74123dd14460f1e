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

// Package workspace tracks the open documents an LSP client has told
// the server about. It holds no persisted state: everything here is
// reconstructed from didOpen notifications and lost on process exit, as
// the specification requires.
package workspace

import "sync"

// Document is one open file's current text and version, per LSP's
// textDocument lifecycle.
type Document struct {
	URI     string
	Text    string
	Version int
}

// Workspace is the process-wide table of open documents.
type Workspace struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// New returns an empty Workspace.
func New() *Workspace {
	return &Workspace{docs: make(map[string]Document)}
}

// Open records a newly opened document.
func (w *Workspace) Open(uri, text string, version int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[uri] = Document{URI: uri, Text: text, Version: version}
}

// Change replaces a tracked document's full text and bumps its version.
// Incremental (range-based) edits are out of scope: every didChange this
// server receives is expected to carry the full document text.
func (w *Workspace) Change(uri, text string, version int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[uri] = Document{URI: uri, Text: text, Version: version}
}

// Close drops a document from the table.
func (w *Workspace) Close(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, uri)
}

// Get returns the tracked document for uri, if any.
func (w *Workspace) Get(uri string) (Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d, ok := w.docs[uri]
	return d, ok
}
