/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pamet/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport("", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Pamet Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInRepositoryBackups(t *testing.T) {
	root := t.TempDir()
	path, err := writeReport(root, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.HasPrefix(path, filepath.Join(root, storage.BackupsDirName)) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("Repository: "+root)) {
		t.Fatalf("report does not name the repository: %s", string(b))
	}
}

// TestRecoverExitsWithCode2 checks Recover handles a panic, writes a report and
// asks for exit code 2 without terminating the test process.
func TestRecoverExitsWithCode2(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	func() {
		defer Recover(root)
		panic("boom")
	}()

	bdir := filepath.Join(root, storage.BackupsDirName)
	files, _ := os.ReadDir(bdir)
	var found string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			found = filepath.Join(bdir, f.Name())
			break
		}
	}
	if found == "" {
		t.Fatalf("expected crash report file under backups dir")
	}
	b, err := os.ReadFile(found)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover("")
	}()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}
