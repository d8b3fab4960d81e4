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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Probe opens device read-only and queries its keyboard mode. A missing
// device is Absent; any other failure is QueryFailed carrying the OS
// error.
func Probe(device string) Status {
	f, err := os.Open(device)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{Device: device, State: StateAbsent}
		}
		return Status{Device: device, State: StateQueryFailed, Err: err}
	}
	defer f.Close()

	mode, err := unix.IoctlGetInt(int(f.Fd()), kdgkbmode)
	if err != nil {
		return Status{Device: device, State: StateQueryFailed, Err: fmt.Errorf("KDGKBMODE ioctl: %w", err)}
	}

	if mode == kbOff {
		return Status{Device: device, State: StateInputDisabled, Mode: mode}
	}
	return Status{Device: device, State: StateInputActive, Mode: mode}
}
