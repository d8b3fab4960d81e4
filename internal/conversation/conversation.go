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

// Package conversation bridges authentication prompts and responses across
// the synchronous PAM conversation boundary. The foreign side hands over a
// whole batch of messages at once and expects a single contiguous response
// buffer sized to the batch, with only the prompt-style entries populated.
// Respond reproduces that contract in safe Go so the ownership rules live
// in exactly one place.
package conversation

import (
	"fmt"

	"github.com/eminwux/fallbackdm/internal/errdefs"
)

// Style is the closed set of request styles the authentication service
// may send.
type Style int

const (
	// StyleEchoPrompt asks a question whose answer may be echoed
	// (typically the login name).
	StyleEchoPrompt Style = iota
	// StyleBlindPrompt asks a question whose answer must not be echoed
	// (typically a password).
	StyleBlindPrompt
	// StyleInfo carries an informational message; no response.
	StyleInfo
	// StyleError carries an error message; no response, and the whole
	// batch fails.
	StyleError
)

func (s Style) String() string {
	switch s {
	case StyleEchoPrompt:
		return "echo-prompt"
	case StyleBlindPrompt:
		return "blind-prompt"
	case StyleInfo:
		return "info"
	case StyleError:
		return "error"
	}
	return fmt.Sprintf("style(%d)", int(s))
}

// Request is one inbound message of a conversation batch.
type Request struct {
	Style Style
	Text  string
}

// Response is one slot of the batch response buffer. Non-prompt requests
// keep their slot with Answered false so the buffer stays aligned with
// the request batch.
type Response struct {
	Text     string
	Answered bool
}

// Handler is the capability set a conversation needs: answer prompts,
// display info, display errors.
type Handler interface {
	PromptEcho(msg string) (string, error)
	PromptBlind(msg string) (string, error)
	Info(msg string)
	Error(msg string)
}

// Respond answers a batch of requests through h. It allocates one
// response slot per request up front and fills prompt slots in request
// order. On any prompt failure, or on the first StyleError request,
// processing stops, every slot is discarded and an error wrapping
// errdefs.ErrConversation is returned; the caller never sees a partial
// buffer. On success the full buffer is returned, including the
// unanswered slots for info requests.
func Respond(h Handler, reqs []Request) ([]Response, error) {
	out := make([]Response, len(reqs))

	for i, req := range reqs {
		switch req.Style {
		case StyleEchoPrompt:
			text, err := h.PromptEcho(req.Text)
			if err != nil {
				return nil, fmt.Errorf("%w: echo prompt %d: %w", errdefs.ErrConversation, i, err)
			}
			out[i] = Response{Text: text, Answered: true}

		case StyleBlindPrompt:
			text, err := h.PromptBlind(req.Text)
			if err != nil {
				return nil, fmt.Errorf("%w: blind prompt %d: %w", errdefs.ErrConversation, i, err)
			}
			out[i] = Response{Text: text, Answered: true}

		case StyleInfo:
			h.Info(req.Text)

		case StyleError:
			h.Error(req.Text)
			return nil, fmt.Errorf("%w: service reported: %s", errdefs.ErrConversation, req.Text)

		default:
			return nil, fmt.Errorf("%w: unknown request style %d", errdefs.ErrConversation, int(req.Style))
		}
	}

	return out, nil
}

// Answered counts the populated slots of a response buffer.
func Answered(resps []Response) int {
	n := 0
	for _, r := range resps {
		if r.Answered {
			n++
		}
	}
	return n
}
