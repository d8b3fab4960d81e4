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

// Package input watches the seat's event devices and classifies what
// they emit, so a caller can block until the first keyboard event.
package input

import "context"

// Event type and code ranges from include/uapi/linux/input-event-codes.h.
const (
	evSyn = 0x00 // synchronization markers
	evKey = 0x01 // keys and buttons
	evRel = 0x02 // relative axes (mice)
	evAbs = 0x03 // absolute axes (touchpads, tablets)
	evMsc = 0x04 // miscellaneous
	evSw  = 0x05 // binary switches (lid, tablet mode)

	// Key codes below btnMisc are keyboard keys; from btnMisc up they
	// are buttons (mouse, joystick, touch tools).
	btnMisc = 0x100
)

type Class int

const (
	ClassOther Class = iota
	ClassSync
	ClassKeyboard
	ClassPointer
	ClassSwitch
)

func (c Class) String() string {
	switch c {
	case ClassSync:
		return "sync"
	case ClassKeyboard:
		return "keyboard"
	case ClassPointer:
		return "pointer"
	case ClassSwitch:
		return "switch"
	}
	return "other"
}

// Event is one decoded input record.
type Event struct {
	Device string
	Type   uint16
	Code   uint16
	Value  int32
}

// Class maps the raw type/code pair onto the coarse classes the release
// trigger distinguishes.
func (e Event) Class() Class {
	switch e.Type {
	case evSyn:
		return ClassSync
	case evKey:
		if e.Code < btnMisc {
			return ClassKeyboard
		}
		return ClassPointer
	case evRel, evAbs:
		return ClassPointer
	case evSw:
		return ClassSwitch
	}
	return ClassOther
}

// Source delivers batches of input events. Wait blocks until at least
// one event arrives or the context is done.
type Source interface {
	Wait(ctx context.Context) ([]Event, error)
	Close() error
}
