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

// Package trigger decides when the controller gives control back: after
// a fixed interval, or on the first keyboard event from the seat.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eminwux/fallbackdm/internal/errdefs"
	"github.com/eminwux/fallbackdm/internal/input"
	"github.com/eminwux/fallbackdm/pkg/api"
)

// ReleaseTrigger blocks until the release condition holds. A nil error
// means the condition fired; context cancellation surfaces as
// errdefs.ErrContextDone.
type ReleaseTrigger interface {
	Wait(ctx context.Context) error
}

// New builds the trigger for a release policy.
func New(logger *slog.Logger, policy api.ReleasePolicy, after time.Duration, seat string) (ReleaseTrigger, error) {
	switch policy {
	case api.ReleaseTimer:
		return &Timer{Logger: logger, After: after}, nil
	case api.ReleaseInput:
		return &InputEvent{Logger: logger, Seat: seat}, nil
	}
	return nil, fmt.Errorf("%w: unknown release policy %q", errdefs.ErrWaitRelease, policy)
}

// Timer fires once After has elapsed.
type Timer struct {
	Logger *slog.Logger
	After  time.Duration
}

func (t *Timer) Wait(ctx context.Context) error {
	t.Logger.Info("holding control", "release_after", t.After.String())

	timer := time.NewTimer(t.After)
	defer timer.Stop()

	select {
	case <-timer.C:
		t.Logger.Info("release interval elapsed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errdefs.ErrContextDone, ctx.Err())
	}
}

// InputEvent fires on the first keyboard event from the seat. Pointer,
// switch and sync events are ignored.
type InputEvent struct {
	Logger *slog.Logger
	Seat   string

	// OpenSource is swappable in tests; nil means the real seat devices.
	OpenSource func(logger *slog.Logger, seat string) (input.Source, error)
}

func (t *InputEvent) Wait(ctx context.Context) error {
	open := t.OpenSource
	if open == nil {
		open = func(logger *slog.Logger, seat string) (input.Source, error) {
			return input.OpenSeat(logger, seat)
		}
	}

	src, err := open(t.Logger, t.Seat)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWaitRelease, err)
	}
	defer src.Close()

	t.Logger.Info("holding control until first keyboard event", "seat", t.Seat)
	for {
		events, err := src.Wait(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", errdefs.ErrWaitRelease, err)
		}
		for _, ev := range events {
			if ev.Class() != input.ClassKeyboard {
				continue
			}
			t.Logger.Info("keyboard event observed",
				"device", ev.Device, "code", ev.Code, "value", ev.Value)
			return nil
		}
	}
}
