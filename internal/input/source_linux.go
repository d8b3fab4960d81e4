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

//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"unsafe"

	"github.com/eminwux/fallbackdm/internal/errdefs"
	"golang.org/x/sys/unix"
)

const deviceGlob = "/dev/input/event*"

// rawEvent mirrors struct input_event from linux/input.h for the
// running architecture.
type rawEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

const rawEventSize = int(unsafe.Sizeof(rawEvent{}))

type device struct {
	path string
	fd   int
}

// SeatSource reads every event device of the machine. The seat name is
// carried for logging; device-to-seat assignment is not consulted, on a
// fallback box all evdev nodes belong to the one physical seat.
type SeatSource struct {
	logger  *slog.Logger
	seat    string
	devices []device

	// wake pipe unblocks a poll when the context is cancelled
	wakeR int
	wakeW int
}

// OpenSeat opens every /dev/input/event* node in non-blocking mode.
// Nodes that refuse to open are skipped with a warning; having zero
// readable devices is an error.
func OpenSeat(logger *slog.Logger, seat string) (*SeatSource, error) {
	paths, err := filepath.Glob(deviceGlob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrOpenSource, err)
	}
	sort.Strings(paths)

	s := &SeatSource{logger: logger, seat: seat, wakeR: -1, wakeW: -1}
	for _, path := range paths {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			logger.Warn("skipping unreadable input device", "device", path, "error", err)
			continue
		}
		s.devices = append(s.devices, device{path: path, fd: fd})
	}
	if len(s.devices) == 0 {
		return nil, fmt.Errorf("%w: no readable input devices under %s", errdefs.ErrOpenSource, deviceGlob)
	}

	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: wake pipe: %w", errdefs.ErrOpenSource, err)
	}
	s.wakeR, s.wakeW = pipe[0], pipe[1]

	logger.Info("watching input devices", "seat", seat, "devices", len(s.devices))
	return s, nil
}

// Wait polls all devices until at least one delivers events, then drains
// everything that is immediately readable and returns the whole batch.
func (s *SeatSource) Wait(ctx context.Context) ([]Event, error) {
	fds := make([]unix.PollFd, 0, len(s.devices)+1)
	for _, d := range s.devices {
		fds = append(fds, unix.PollFd{Fd: int32(d.fd), Events: unix.POLLIN})
	}
	fds = append(fds, unix.PollFd{Fd: int32(s.wakeR), Events: unix.POLLIN})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_, _ = unix.Write(s.wakeW, []byte{0})
		case <-done:
		}
	}()

	for {
		n, err := unix.Poll(fds, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("%w: %w", errdefs.ErrPollSource, err)
		}
		if n == 0 {
			continue
		}

		if ctx.Err() != nil {
			s.drainWake()
			return nil, fmt.Errorf("%w: %w", errdefs.ErrContextDone, ctx.Err())
		}

		var events []Event
		for i, pfd := range fds[:len(s.devices)] {
			if pfd.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) == 0 {
				continue
			}
			events = append(events, s.drain(s.devices[i])...)
		}
		if len(events) > 0 {
			return events, nil
		}
	}
}

// drain reads a device until it would block and decodes every complete
// record. Short trailing reads are dropped.
func (s *SeatSource) drain(d device) []Event {
	var events []Event
	buf := make([]byte, 64*rawEventSize)
	for {
		n, err := unix.Read(d.fd, buf)
		if err != nil || n <= 0 {
			return events
		}
		for off := 0; off+rawEventSize <= n; off += rawEventSize {
			raw := *(*rawEvent)(unsafe.Pointer(&buf[off]))
			events = append(events, Event{
				Device: d.path,
				Type:   raw.Type,
				Code:   raw.Code,
				Value:  raw.Value,
			})
		}
	}
}

func (s *SeatSource) drainWake() {
	buf := make([]byte, 16)
	for {
		if n, err := unix.Read(s.wakeR, buf); err != nil || n <= 0 {
			return
		}
	}
}

// Close releases every device and the wake pipe.
func (s *SeatSource) Close() error {
	var firstErr error
	for _, d := range s.devices {
		if err := unix.Close(d.fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.devices = nil
	for _, fd := range []int{s.wakeR, s.wakeW} {
		if fd >= 0 {
			_ = unix.Close(fd)
		}
	}
	s.wakeR, s.wakeW = -1, -1
	return firstErr
}
