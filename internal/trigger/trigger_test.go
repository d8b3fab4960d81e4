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

package trigger

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/eminwux/fallbackdm/internal/errdefs"
	"github.com/eminwux/fallbackdm/internal/input"
	"github.com/eminwux/fallbackdm/pkg/api"
)

type sourceFake struct {
	WaitFunc func(ctx context.Context) ([]input.Event, error)

	WaitCalls  int
	CloseCalls int
}

func (f *sourceFake) Wait(ctx context.Context) ([]input.Event, error) {
	f.WaitCalls++
	if f.WaitFunc != nil {
		return f.WaitFunc(ctx)
	}
	return nil, errors.New("no wait behavior configured")
}

func (f *sourceFake) Close() error {
	f.CloseCalls++
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func Test_TimerFiresAfterInterval(t *testing.T) {
	trig := &Timer{Logger: newTestLogger(), After: 0}
	if err := trig.Wait(context.Background()); err != nil {
		t.Fatalf("zero interval must fire immediately: %v", err)
	}
}

func Test_TimerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trig := &Timer{Logger: newTestLogger(), After: time.Hour}
	err := trig.Wait(ctx)
	if !errors.Is(err, errdefs.ErrContextDone) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrContextDone, err)
	}
}

func Test_InputEventIgnoresNonKeyboard(t *testing.T) {
	batches := [][]input.Event{
		{{Type: 0x02, Code: 0x00, Value: -1}},                 // relative motion
		{{Type: 0x01, Code: 0x110, Value: 1}},                 // mouse button
		{{Type: 0x00, Code: 0, Value: 0}, {Type: 0x01, Code: 0x1c, Value: 1}}, // sync then enter key
	}
	src := &sourceFake{}
	src.WaitFunc = func(_ context.Context) ([]input.Event, error) {
		batch := batches[src.WaitCalls-1]
		return batch, nil
	}

	trig := &InputEvent{
		Logger: newTestLogger(),
		Seat:   "seat0",
		OpenSource: func(_ *slog.Logger, _ string) (input.Source, error) {
			return src, nil
		},
	}

	if err := trig.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if src.WaitCalls != 3 {
		t.Fatalf("expected the first keyboard event on batch 3; waited %d times", src.WaitCalls)
	}
	if src.CloseCalls != 1 {
		t.Fatalf("source must be closed exactly once; got %d", src.CloseCalls)
	}
}

func Test_InputEventWrapsSourceFailure(t *testing.T) {
	src := &sourceFake{
		WaitFunc: func(_ context.Context) ([]input.Event, error) {
			return nil, errors.New("device unplugged")
		},
	}
	trig := &InputEvent{
		Logger: newTestLogger(),
		Seat:   "seat0",
		OpenSource: func(_ *slog.Logger, _ string) (input.Source, error) {
			return src, nil
		},
	}

	err := trig.Wait(context.Background())
	if !errors.Is(err, errdefs.ErrWaitRelease) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrWaitRelease, err)
	}
	if src.CloseCalls != 1 {
		t.Fatalf("source must be closed on failure; got %d close calls", src.CloseCalls)
	}
}

func Test_InputEventOpenFailure(t *testing.T) {
	trig := &InputEvent{
		Logger: newTestLogger(),
		Seat:   "seat0",
		OpenSource: func(_ *slog.Logger, _ string) (input.Source, error) {
			return nil, errdefs.ErrOpenSource
		},
	}

	err := trig.Wait(context.Background())
	if !errors.Is(err, errdefs.ErrOpenSource) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrOpenSource, err)
	}
}

func Test_NewSelectsPolicy(t *testing.T) {
	logger := newTestLogger()

	trig, err := New(logger, api.ReleaseTimer, time.Minute, "seat0")
	if err != nil {
		t.Fatalf("timer policy: %v", err)
	}
	if _, ok := trig.(*Timer); !ok {
		t.Fatalf("expected *Timer; got %T", trig)
	}

	trig, err = New(logger, api.ReleaseInput, 0, "seat0")
	if err != nil {
		t.Fatalf("input policy: %v", err)
	}
	if _, ok := trig.(*InputEvent); !ok {
		t.Fatalf("expected *InputEvent; got %T", trig)
	}

	if _, err := New(logger, api.ReleasePolicy("bogus"), 0, "seat0"); err == nil {
		t.Fatalf("unknown policy must be rejected")
	}
}
