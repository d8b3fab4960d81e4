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

// Package vt reads the keyboard mode of a virtual terminal. The probe is
// purely observational: it never mutates the terminal and its failures
// are diagnostic, never fatal to the control sequence.
package vt

import (
	"fmt"
	"log/slog"
)

// DefaultDevice is the terminal whose keyboard mode reflects whether the
// VT layer still consumes input.
const DefaultDevice = "/dev/tty1"

// Keyboard-mode control codes from include/uapi/linux/kd.h.
const (
	// kdgkbmode reads the current keyboard mode into the int argument.
	kdgkbmode = 0x4b44

	// Modes reported by kdgkbmode.
	kbRaw       = 0x00 // K_RAW: raw scancodes
	kbXlate     = 0x01 // K_XLATE: translated characters
	kbMediumRaw = 0x02 // K_MEDIUMRAW: keycodes
	kbUnicode   = 0x03 // K_UNICODE: unicode characters
	kbOff       = 0x04 // K_OFF: VT input disabled
)

type State int

const (
	// StateAbsent: the device does not exist; nothing to probe.
	StateAbsent State = iota
	// StateQueryFailed: the device exists but open or ioctl failed.
	StateQueryFailed
	// StateInputDisabled: keyboard mode is K_OFF.
	StateInputDisabled
	// StateInputActive: any other keyboard mode; the VT may consume input.
	StateInputActive
)

// Status is the result of one probe.
type Status struct {
	Device string
	State  State
	Mode   int
	Err    error
}

// ModeName names a keyboard mode for logs.
func ModeName(mode int) string {
	switch mode {
	case kbRaw:
		return "K_RAW"
	case kbXlate:
		return "K_XLATE"
	case kbMediumRaw:
		return "K_MEDIUMRAW"
	case kbUnicode:
		return "K_UNICODE"
	case kbOff:
		return "K_OFF"
	}
	return fmt.Sprintf("mode(%d)", mode)
}

func (s Status) String() string {
	switch s.State {
	case StateAbsent:
		return fmt.Sprintf("%s absent", s.Device)
	case StateQueryFailed:
		return fmt.Sprintf("%s query failed: %v", s.Device, s.Err)
	case StateInputDisabled:
		return fmt.Sprintf("%s keyboard mode %s: input disabled", s.Device, ModeName(s.Mode))
	case StateInputActive:
		return fmt.Sprintf("%s keyboard mode %s: input active", s.Device, ModeName(s.Mode))
	}
	return fmt.Sprintf("%s unknown state", s.Device)
}

// LogTo writes the status at the severity the state deserves. Probe
// failures are logged and swallowed here; they never abort a sequence.
func (s Status) LogTo(logger *slog.Logger) {
	switch s.State {
	case StateAbsent:
		logger.Info("terminal device not present, no VT-related input problem", "device", s.Device)
	case StateQueryFailed:
		logger.Error("terminal keyboard mode query failed", "device", s.Device, "error", s.Err)
	case StateInputDisabled:
		logger.Info("VT input is disabled", "device", s.Device, "mode", ModeName(s.Mode))
	case StateInputActive:
		logger.Warn("VT keyboard mode is active, VT may consume input",
			"device", s.Device, "mode", ModeName(s.Mode))
	}
}
