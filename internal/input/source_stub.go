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

//go:build !linux

package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eminwux/fallbackdm/internal/errdefs"
)

// SeatSource only exists on Linux; elsewhere OpenSeat always fails.
type SeatSource struct{}

func OpenSeat(_ *slog.Logger, seat string) (*SeatSource, error) {
	return nil, fmt.Errorf("%w: seat %s: %w", errdefs.ErrOpenSource, seat, errors.ErrUnsupported)
}

func (s *SeatSource) Wait(_ context.Context) ([]Event, error) {
	return nil, errors.ErrUnsupported
}

func (s *SeatSource) Close() error { return nil }
