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

package errdefs

import "errors"

var (
	// Authentication and session lifecycle.
	ErrAuthenticate     = errors.New("authentication failed")
	ErrOpenSession      = errors.New("could not open session")
	ErrCloseSession     = errors.New("could not close session")
	ErrPermissionDenied = errors.New("permission denied: not authenticated")
	ErrSessionEnv       = errors.New("error in session environment")
	ErrSessionIDMissing = errors.New("session id is not set in the session environment")
	ErrPAMUnavailable   = errors.New("pam support not built in")

	// Conversation bridge.
	ErrConversation = errors.New("conversation failed")

	// Session control channel.
	ErrControlCall    = errors.New("control call failed")
	ErrControlTimeout = errors.New("control call timed out")
	ErrTakeControl    = errors.New("error taking control of the session")
	ErrReleaseControl = errors.New("error releasing control of the session")

	// Release triggers and input sources.
	ErrWaitRelease = errors.New("error waiting for release trigger")
	ErrOpenSource  = errors.New("could not open input event source")
	ErrPollSource  = errors.New("error polling input event source")

	// Controller plumbing.
	ErrContextDone   = errors.New("context has been cancelled")
	ErrWriteMetadata = errors.New("could not write metadata file")
)
