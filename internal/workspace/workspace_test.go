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

package workspace

import "testing"

func TestOpenChangeCloseLifecycle(t *testing.T) {
	w := New()
	const uri = "file:///a.go"

	if _, ok := w.Get(uri); ok {
		t.Fatalf("Get on an unopened document must miss")
	}

	w.Open(uri, "package p\n", 1)
	d, ok := w.Get(uri)
	if !ok || d.Text != "package p\n" || d.Version != 1 {
		t.Fatalf("Get after Open = %+v, %v", d, ok)
	}

	w.Change(uri, "package p\nfunc F() {}\n", 2)
	d, ok = w.Get(uri)
	if !ok || d.Version != 2 || d.Text != "package p\nfunc F() {}\n" {
		t.Fatalf("Get after Change = %+v, %v", d, ok)
	}

	w.Close(uri)
	if _, ok := w.Get(uri); ok {
		t.Errorf("Get after Close must miss")
	}
}
