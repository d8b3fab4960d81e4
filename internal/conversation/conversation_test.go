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

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/eminwux/fallbackdm/internal/errdefs"
)

type handlerFake struct {
	PromptEchoFunc  func(msg string) (string, error)
	PromptBlindFunc func(msg string) (string, error)
	InfoFunc        func(msg string)
	ErrorFunc       func(msg string)
}

func (h *handlerFake) PromptEcho(msg string) (string, error) {
	if h.PromptEchoFunc != nil {
		return h.PromptEchoFunc(msg)
	}
	return "user", nil
}

func (h *handlerFake) PromptBlind(msg string) (string, error) {
	if h.PromptBlindFunc != nil {
		return h.PromptBlindFunc(msg)
	}
	return "secret", nil
}

func (h *handlerFake) Info(msg string) {
	if h.InfoFunc != nil {
		h.InfoFunc(msg)
	}
}

func (h *handlerFake) Error(msg string) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(msg)
	}
}

func Test_RespondAnswersPromptsInOrder(t *testing.T) {
	h := &handlerFake{
		PromptEchoFunc:  func(_ string) (string, error) { return "login-answer", nil },
		PromptBlindFunc: func(_ string) (string, error) { return "blind-answer", nil },
	}

	reqs := []Request{
		{Style: StyleEchoPrompt, Text: "login:"},
		{Style: StyleInfo, Text: "welcome"},
		{Style: StyleBlindPrompt, Text: "password:"},
	}

	resps, err := Respond(h, reqs)
	if err != nil {
		t.Fatalf("expected success; got: %v", err)
	}
	if len(resps) != len(reqs) {
		t.Fatalf("expected %d slots; got %d", len(reqs), len(resps))
	}
	if Answered(resps) != 2 {
		t.Fatalf("expected 2 answered slots; got %d", Answered(resps))
	}
	if !resps[0].Answered || resps[0].Text != "login-answer" {
		t.Fatalf("slot 0 not answered in order: %+v", resps[0])
	}
	if resps[1].Answered {
		t.Fatalf("info slot must stay unanswered: %+v", resps[1])
	}
	if !resps[2].Answered || resps[2].Text != "blind-answer" {
		t.Fatalf("slot 2 not answered in order: %+v", resps[2])
	}
}

func Test_RespondErrorStylePoisonsBatch(t *testing.T) {
	var sawError string
	echoCalls, blindCalls := 0, 0
	h := &handlerFake{
		PromptEchoFunc: func(_ string) (string, error) {
			echoCalls++
			return "u", nil
		},
		PromptBlindFunc: func(_ string) (string, error) {
			blindCalls++
			return "p", nil
		},
		ErrorFunc: func(msg string) { sawError = msg },
	}

	// Scenario: [EchoPrompt, BlindPrompt, Error] — two answers are
	// produced then discarded, and the batch fails.
	reqs := []Request{
		{Style: StyleEchoPrompt, Text: "login:"},
		{Style: StyleBlindPrompt, Text: "password:"},
		{Style: StyleError, Text: "account locked"},
	}

	resps, err := Respond(h, reqs)
	if !errors.Is(err, errdefs.ErrConversation) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrConversation, err)
	}
	if resps != nil {
		t.Fatalf("no buffer may escape a failed batch; got %d slots", len(resps))
	}
	if echoCalls != 1 || blindCalls != 1 {
		t.Fatalf("prompts before the error must still run once: echo=%d blind=%d", echoCalls, blindCalls)
	}
	if sawError != "account locked" {
		t.Fatalf("error text not delivered to handler: %q", sawError)
	}
}

func Test_RespondStopsAfterPromptFailure(t *testing.T) {
	infoSeen := false
	h := &handlerFake{
		PromptEchoFunc: func(_ string) (string, error) {
			return "", errors.New("handler refused")
		},
		InfoFunc: func(_ string) { infoSeen = true },
	}

	reqs := []Request{
		{Style: StyleEchoPrompt, Text: "login:"},
		{Style: StyleInfo, Text: "never reached"},
	}

	resps, err := Respond(h, reqs)
	if !errors.Is(err, errdefs.ErrConversation) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrConversation, err)
	}
	if resps != nil {
		t.Fatalf("expected nil buffer after failure")
	}
	if infoSeen {
		t.Fatalf("requests after a failure must not be processed")
	}
}

func Test_RespondEmptyBatch(t *testing.T) {
	resps, err := Respond(&handlerFake{}, nil)
	if err != nil {
		t.Fatalf("empty batch must succeed; got: %v", err)
	}
	if len(resps) != 0 {
		t.Fatalf("expected empty buffer; got %d slots", len(resps))
	}
}

func Test_StaticHandlerAnswers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewStaticHandler(logger, "greeter")

	login, err := h.PromptEcho("login:")
	if err != nil || login != "greeter" {
		t.Fatalf("expected fixed identity; got %q, %v", login, err)
	}

	secret, err := h.PromptBlind("password:")
	if err != nil || secret == "" {
		t.Fatalf("expected fixed placeholder; got %q, %v", secret, err)
	}

	// Default identity when none is configured.
	d := NewStaticHandler(logger, "")
	login, _ = d.PromptEcho("login:")
	if login != DefaultUser {
		t.Fatalf("expected default identity %q; got %q", DefaultUser, login)
	}
}
