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

package conversation

import "log/slog"

const (
	// DefaultUser answers login prompts when no identity is configured.
	DefaultUser = "root"
	// placeholderSecret answers blind prompts. The service is expected
	// to be configured passwordless; policy enforcement stays on the
	// authentication side.
	placeholderSecret = "no password"
)

// StaticHandler is the passwordless conversation used by fallbackdm: it
// answers every echo prompt with a fixed identity and every blind prompt
// with a fixed placeholder.
type StaticHandler struct {
	User   string
	Logger *slog.Logger
}

// NewStaticHandler builds a handler answering echo prompts with user.
func NewStaticHandler(logger *slog.Logger, user string) *StaticHandler {
	if user == "" {
		user = DefaultUser
	}
	return &StaticHandler{User: user, Logger: logger}
}

func (s *StaticHandler) PromptEcho(msg string) (string, error) {
	s.Logger.Debug("answering echo prompt", "prompt", msg, "answer", s.User)
	return s.User, nil
}

func (s *StaticHandler) PromptBlind(msg string) (string, error) {
	s.Logger.Debug("answering blind prompt", "prompt", msg)
	return placeholderSecret, nil
}

func (s *StaticHandler) Info(msg string) {
	s.Logger.Debug("conversation info", "msg", msg)
}

func (s *StaticHandler) Error(msg string) {
	s.Logger.Error("conversation error", "msg", msg)
}
