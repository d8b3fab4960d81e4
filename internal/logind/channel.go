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

// Package logind wraps the session-control calls of the
// org.freedesktop.login1 session object: take control, release control,
// and the diagnostic property/introspection queries.
package logind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eminwux/fallbackdm/internal/errdefs"
	"github.com/godbus/dbus/v5"
)

const (
	busName           = "org.freedesktop.login1"
	sessionPathPrefix = "/org/freedesktop/login1/session/"
	sessionInterface  = "org.freedesktop.login1.Session"

	introspectableInterface = "org.freedesktop.DBus.Introspectable"
	propertiesInterface     = "org.freedesktop.DBus.Properties"

	// Every remote call is bounded by this timeout.
	callTimeout = 5000 * time.Millisecond
)

// Caller is the narrow slice of dbus.BusObject the channel needs; tests
// fake it.
type Caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// SessionPath builds the object path for a logind session identifier.
func SessionPath(sessionID string) dbus.ObjectPath {
	return dbus.ObjectPath(sessionPathPrefix + sessionID)
}

// Channel is stateless beyond its address: one session object, a fixed
// per-call timeout, every call independent.
type Channel struct {
	logger    *slog.Logger
	object    Caller
	sessionID string
	timeout   time.Duration

	conn *dbus.Conn // set only when the channel owns the bus connection
}

// NewChannel wraps an existing caller; used by tests and by Connect.
func NewChannel(logger *slog.Logger, object Caller, sessionID string) *Channel {
	return &Channel{
		logger:    logger,
		object:    object,
		sessionID: sessionID,
		timeout:   callTimeout,
	}
}

// Connect dials the system bus and addresses the session object for
// sessionID. The returned channel owns the connection; Close releases it.
func Connect(logger *slog.Logger, sessionID string) (*Channel, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: connect system bus: %w", errdefs.ErrControlCall, err)
	}

	ch := NewChannel(logger, conn.Object(busName, SessionPath(sessionID)), sessionID)
	ch.conn = conn
	logger.Debug("control channel connected", "session", sessionID, "path", string(SessionPath(sessionID)))
	return ch, nil
}

func (c *Channel) SessionID() string { return c.sessionID }

// Close releases the bus connection if the channel owns one.
func (c *Channel) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// TakeControl asserts exclusive input/display control over the session.
// The VT keyboard-mode side effect is observable through the vt probe,
// not through this call.
func (c *Channel) TakeControl(ctx context.Context, force bool) error {
	c.logger.Info("taking control of session", "session", c.sessionID, "force", force)
	if _, err := c.call(ctx, sessionInterface+".TakeControl", force); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrTakeControl, err)
	}
	return nil
}

// ReleaseControl relinquishes control. Repeating the call on an already
// released session is a no-op on the service side.
func (c *Channel) ReleaseControl(ctx context.Context) error {
	c.logger.Info("releasing control of session", "session", c.sessionID)
	if _, err := c.call(ctx, sessionInterface+".ReleaseControl"); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrReleaseControl, err)
	}
	return nil
}

// Describe fetches all properties of the session object, for diagnostics.
func (c *Channel) Describe(ctx context.Context) (map[string]dbus.Variant, error) {
	call, err := c.call(ctx, propertiesInterface+".GetAll", sessionInterface)
	if err != nil {
		return nil, err
	}

	var props map[string]dbus.Variant
	if err := call.Store(&props); err != nil {
		return nil, fmt.Errorf("%w: decode properties: %w", errdefs.ErrControlCall, err)
	}
	return props, nil
}

// Introspect returns the session object's introspection XML.
func (c *Channel) Introspect(ctx context.Context) (string, error) {
	call, err := c.call(ctx, introspectableInterface+".Introspect")
	if err != nil {
		return "", err
	}

	var xml string
	if err := call.Store(&xml); err != nil {
		return "", fmt.Errorf("%w: decode introspection: %w", errdefs.ErrControlCall, err)
	}
	return xml, nil
}

func (c *Channel) call(ctx context.Context, method string, args ...interface{}) (*dbus.Call, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.object.CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		if errors.Is(call.Err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", errdefs.ErrControlTimeout, method, call.Err)
		}
		return nil, fmt.Errorf("%w: %s: %w", errdefs.ErrControlCall, method, call.Err)
	}
	return call, nil
}
