// Copyright 2025 Emiliano Spinella (eminwux)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package vt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_ProbeMissingDeviceIsAbsent(t *testing.T) {
	status := Probe(filepath.Join(t.TempDir(), "no-such-tty"))
	if status.State != StateAbsent {
		t.Fatalf("expected absent; got %v (%s)", status.State, status)
	}
	if status.Err != nil {
		t.Fatalf("absent carries no error; got %v", status.Err)
	}
}

func Test_ProbeNonTerminalFailsQuery(t *testing.T) {
	// A regular file opens fine but rejects the keyboard-mode ioctl.
	path := filepath.Join(t.TempDir(), "plainfile")
	if err := os.WriteFile(path, []byte("not a terminal"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	status := Probe(path)
	if status.State != StateQueryFailed {
		t.Fatalf("expected query failure; got %v (%s)", status.State, status)
	}
	if status.Err == nil {
		t.Fatalf("query failure must carry the OS error")
	}
}

func Test_ModeNames(t *testing.T) {
	cases := map[int]string{
		kbRaw:     "K_RAW",
		kbXlate:   "K_XLATE",
		kbUnicode: "K_UNICODE",
		kbOff:     "K_OFF",
	}
	for mode, want := range cases {
		if got := ModeName(mode); got != want {
			t.Fatalf("mode %d: expected %q; got %q", mode, want, got)
		}
	}
	if got := ModeName(42); !strings.Contains(got, "42") {
		t.Fatalf("unknown mode must include the raw value; got %q", got)
	}
}

func Test_StatusString(t *testing.T) {
	s := Status{Device: "/dev/tty1", State: StateInputDisabled, Mode: kbOff}
	if !strings.Contains(s.String(), "input disabled") {
		t.Fatalf("unexpected string: %q", s.String())
	}
}
