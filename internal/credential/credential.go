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

// Package credential owns the authenticated handle for one controller run
// and guarantees ordered teardown: close the session if one was opened,
// then finalize the handle, exactly once, on every exit path.
package credential

import (
	"fmt"
	"log/slog"

	"github.com/eminwux/fallbackdm/internal/errdefs"
)

// Transaction is the authenticated-handle surface the credential drives.
// internal/pam implements it; tests inject fakes.
type Transaction interface {
	Authenticate() error
	OpenSession() error
	CloseSession() error
	PutEnv(key, value string) error
	GetEnv(key string) (string, bool, error)
	End() error
}

// Credential tracks the authenticated/open-session flags over a
// Transaction. has-open-session implies is-authenticated.
type Credential struct {
	logger *slog.Logger
	tx     Transaction

	// CloseOnRelease controls whether Release closes an open session
	// before ending the handle. Default true.
	CloseOnRelease bool

	isAuthenticated bool
	hasOpenSession  bool
	released        bool
}

// New wraps tx. The credential assumes exclusive ownership of the
// transaction until Release.
func New(logger *slog.Logger, tx Transaction) *Credential {
	return &Credential{
		logger:         logger,
		tx:             tx,
		CloseOnRelease: true,
	}
}

func (c *Credential) IsAuthenticated() bool { return c.isAuthenticated }
func (c *Credential) HasOpenSession() bool  { return c.hasOpenSession }

// Authenticate runs the authentication stack once. Failure leaves all
// flags unset and is fatal to the caller.
func (c *Credential) Authenticate() error {
	if err := c.tx.Authenticate(); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrAuthenticate, err)
	}
	c.isAuthenticated = true
	c.logger.Info("authenticated")
	return nil
}

// OpenSession opens a session for a previously authenticated user.
// Calling it before a successful Authenticate is a permission error and
// never sets the open-session flag.
func (c *Credential) OpenSession() error {
	if !c.isAuthenticated {
		return fmt.Errorf("%w: %w", errdefs.ErrOpenSession, errdefs.ErrPermissionDenied)
	}
	if err := c.tx.OpenSession(); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrOpenSession, err)
	}
	c.hasOpenSession = true
	c.logger.Info("session opened")
	return nil
}

// SetEnv writes key=value into the session environment namespace.
func (c *Credential) SetEnv(key, value string) error {
	if err := c.tx.PutEnv(key, value); err != nil {
		return fmt.Errorf("%w: set %s: %w", errdefs.ErrSessionEnv, key, err)
	}
	return nil
}

// GetEnv reads key back from the session environment namespace. The
// second return reports presence.
func (c *Credential) GetEnv(key string) (string, bool, error) {
	val, ok, err := c.tx.GetEnv(key)
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %w", errdefs.ErrSessionEnv, key, err)
	}
	return val, ok, nil
}

// Release tears the credential down: if a session is open and
// CloseOnRelease is set, it is closed best-effort (a close failure is
// recorded but never blocks finalization), then the handle is ended
// exactly once. Release is idempotent and safe to defer at acquisition.
func (c *Credential) Release() error {
	if c.released {
		return nil
	}
	c.released = true

	var closeErr error
	if c.hasOpenSession && c.CloseOnRelease {
		if err := c.tx.CloseSession(); err != nil {
			closeErr = fmt.Errorf("%w: %w", errdefs.ErrCloseSession, err)
			c.logger.Warn("session close failed", "error", err)
		} else {
			c.logger.Info("session closed")
		}
		c.hasOpenSession = false
	}

	if err := c.tx.End(); err != nil {
		c.logger.Warn("ending transaction failed", "error", err)
		if closeErr != nil {
			return fmt.Errorf("%w: %w", closeErr, err)
		}
		return err
	}
	return closeErr
}
