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

package api

import "time"

// ReleasePolicy selects the strategy that ends the control hold.
type ReleasePolicy string

const (
	// ReleaseTimer relinquishes control after a fixed duration.
	ReleaseTimer ReleasePolicy = "timer"
	// ReleaseInput relinquishes control on the first keyboard event
	// observed on the configured seat.
	ReleaseInput ReleasePolicy = "input"
)

// ControllerSpec carries everything one controller run needs.
type ControllerSpec struct {
	// Service is the PAM service name used to authenticate and open
	// the logind session.
	Service string `json:"service"`
	// User is the identity the passwordless conversation answers
	// login prompts with.
	User string `json:"user"`
	// Seat names the seat whose input devices satisfy the input
	// release policy.
	Seat string `json:"seat"`
	// VTNumber, when set, is propagated as XDG_VTNR before the
	// session opens.
	VTNumber string `json:"vtNumber,omitempty"`
	// VTDevice is the terminal device probed for keyboard mode.
	VTDevice string `json:"vtDevice"`
	// RunPath is the base directory for run state.
	RunPath string `json:"runPath"`
	// Force is passed through to TakeControl.
	Force bool `json:"force"`

	Release      ReleasePolicy `json:"release"`
	ReleaseAfter time.Duration `json:"releaseAfter"`

	ProfileName string `json:"profileName,omitempty"`
}

// ControllerState tracks where in the lifecycle a run is.
type ControllerState string

const (
	StateStarting      ControllerState = "starting"
	StateAuthenticated ControllerState = "authenticated"
	StateSessionOpen   ControllerState = "session-open"
	StateControlTaken  ControllerState = "control-taken"
	StateWaiting       ControllerState = "waiting"
	StateReleased      ControllerState = "released"
	StateClosed        ControllerState = "closed"
	StateFailed        ControllerState = "failed"
)

// ControllerStatus is the persisted half of the run metadata.
type ControllerStatus struct {
	Pid             int             `json:"pid"`
	SessionID       string          `json:"sessionId,omitempty"`
	State           ControllerState `json:"state"`
	ControlAsserted bool            `json:"controlAsserted"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ControllerMetadata is written atomically to metadata.json under the
// run path on every state transition.
type ControllerMetadata struct {
	Spec   *ControllerSpec  `json:"spec"`
	Status ControllerStatus `json:"status"`
}
