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

// Package controller runs the whole fallback sequence: authenticate,
// open a session, take control of it, hold until the release condition
// fires, then release and tear down. Control release and credential
// teardown are deferred obligations; they run on every exit path once
// acquired.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/eminwux/fallbackdm/internal/common"
	"github.com/eminwux/fallbackdm/internal/credential"
	"github.com/eminwux/fallbackdm/internal/errdefs"
	"github.com/eminwux/fallbackdm/internal/logind"
	"github.com/eminwux/fallbackdm/internal/trigger"
	"github.com/eminwux/fallbackdm/internal/vt"
	"github.com/eminwux/fallbackdm/pkg/api"
	"github.com/godbus/dbus/v5"
)

// Session environment keys propagated before the session opens.
const (
	envSeat          = "XDG_SEAT"
	envVTNumber      = "XDG_VTNR"
	envSessionID     = "XDG_SESSION_ID"
	metadataDirPerms = 0o755
)

// ControlChannel is the slice of the logind channel the controller
// drives; tests inject fakes.
type ControlChannel interface {
	TakeControl(ctx context.Context, force bool) error
	ReleaseControl(ctx context.Context) error
	Describe(ctx context.Context) (map[string]dbus.Variant, error)
	Introspect(ctx context.Context) (string, error)
	Close() error
}

// Controller executes one fallback run. The constructor fields are
// swappable so tests can run the full sequence without PAM, a system
// bus, or real devices.
type Controller struct {
	logger *slog.Logger
	spec   *api.ControllerSpec

	StartTransaction func(logger *slog.Logger, service, user string) (credential.Transaction, error)
	ConnectChannel   func(logger *slog.Logger, sessionID string) (ControlChannel, error)
	NewTrigger       func(logger *slog.Logger, spec *api.ControllerSpec) (trigger.ReleaseTrigger, error)
	ProbeVT          func(device string) vt.Status

	status api.ControllerStatus
	runDir string
}

// New wires the production collaborators; spec must already carry its
// defaults.
func New(logger *slog.Logger, spec *api.ControllerSpec) *Controller {
	return &Controller{
		logger:           logger,
		spec:             spec,
		StartTransaction: startTransaction,
		ConnectChannel: func(logger *slog.Logger, sessionID string) (ControlChannel, error) {
			return logind.Connect(logger, sessionID)
		},
		NewTrigger: func(logger *slog.Logger, spec *api.ControllerSpec) (trigger.ReleaseTrigger, error) {
			return trigger.New(logger, spec.Release, spec.ReleaseAfter, spec.Seat)
		},
		ProbeVT: vt.Probe,
	}
}

// Status returns a copy of the current run status.
func (c *Controller) Status() api.ControllerStatus { return c.status }

// Run executes the sequence. Any error after control is taken still
// results in a release attempt before the error is returned.
func (c *Controller) Run(ctx context.Context) (retErr error) {
	if err := c.prepareRunDir(ctx); err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			c.status.State = api.StateFailed
			c.persist(context.WithoutCancel(ctx))
		}
	}()
	if err := c.setState(ctx, api.StateStarting); err != nil {
		return err
	}

	c.ProbeVT(c.spec.VTDevice).LogTo(c.logger)

	tx, err := c.StartTransaction(c.logger, c.spec.Service, c.spec.User)
	if err != nil {
		return err
	}
	cred := credential.New(c.logger, tx)
	defer func() {
		if err := cred.Release(); err != nil {
			c.logger.Warn("credential teardown reported an error", "error", err)
		}
	}()

	if err := cred.Authenticate(); err != nil {
		return err
	}
	if err := c.setState(ctx, api.StateAuthenticated); err != nil {
		return err
	}

	if err := cred.SetEnv(envSeat, c.spec.Seat); err != nil {
		return err
	}
	if c.spec.VTNumber != "" {
		if err := cred.SetEnv(envVTNumber, c.spec.VTNumber); err != nil {
			return err
		}
	}

	if err := cred.OpenSession(); err != nil {
		return err
	}
	sessionID, ok, err := cred.GetEnv(envSessionID)
	if err != nil {
		return err
	}
	if !ok || sessionID == "" {
		return errdefs.ErrSessionIDMissing
	}
	c.status.SessionID = sessionID
	if err := c.setState(ctx, api.StateSessionOpen); err != nil {
		return err
	}
	c.logger.Info("session registered", "session", sessionID)

	ch, err := c.ConnectChannel(c.logger, sessionID)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := c.describeSession(ctx, ch); err != nil {
		return err
	}

	if err := ch.TakeControl(ctx, c.spec.Force); err != nil {
		return err
	}
	c.status.ControlAsserted = true
	if err := c.setState(ctx, api.StateControlTaken); err != nil {
		return err
	}
	// Obligation: once control is taken it must be given back, whatever
	// happens between here and the normal release below.
	defer func() {
		if !c.status.ControlAsserted {
			return
		}
		rctx := context.WithoutCancel(ctx)
		if rerr := ch.ReleaseControl(rctx); rerr != nil {
			retErr = errors.Join(retErr, rerr)
			return
		}
		c.status.ControlAsserted = false
		c.persist(rctx)
	}()

	c.ProbeVT(c.spec.VTDevice).LogTo(c.logger)

	if err := c.setState(ctx, api.StateWaiting); err != nil {
		return err
	}
	trig, err := c.NewTrigger(c.logger, c.spec)
	if err != nil {
		return err
	}
	if err := trig.Wait(ctx); err != nil {
		return err
	}

	if err := ch.ReleaseControl(ctx); err != nil {
		return err
	}
	c.status.ControlAsserted = false
	if err := c.setState(ctx, api.StateReleased); err != nil {
		return err
	}

	c.ProbeVT(c.spec.VTDevice).LogTo(c.logger)

	if err := cred.Release(); err != nil {
		return err
	}
	return c.setState(ctx, api.StateClosed)
}

// prepareRunDir creates the run-state directory and reports whether a
// previous run died while it still held control.
func (c *Controller) prepareRunDir(ctx context.Context) error {
	runDir := c.spec.RunPath
	if runDir == "" {
		base, err := common.RuntimeBase()
		if err != nil {
			return fmt.Errorf("%w: %w", errdefs.ErrWriteMetadata, err)
		}
		runDir = base
	}
	if err := os.MkdirAll(runDir, metadataDirPerms); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWriteMetadata, err)
	}
	c.runDir = runDir

	var prior api.ControllerMetadata
	if err := common.ReadMetadata(runDir, &prior); err == nil {
		if prior.Status.ControlAsserted {
			c.logger.Warn("previous run exited while control was still asserted",
				"pid", prior.Status.Pid, "session", prior.Status.SessionID,
				"state", string(prior.Status.State))
		}
	} else if !os.IsNotExist(err) {
		c.logger.Warn("could not read previous run metadata", "dir", runDir, "error", err)
	}

	c.status = api.ControllerStatus{Pid: os.Getpid(), State: api.StateStarting}
	return nil
}

// describeSession dumps the session object when debug logging is on.
func (c *Controller) describeSession(ctx context.Context, ch ControlChannel) error {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}
	props, err := ch.Describe(ctx)
	if err != nil {
		return err
	}
	c.logger.Debug("session properties", "properties", props)

	xml, err := ch.Introspect(ctx)
	if err != nil {
		return err
	}
	c.logger.Debug("session introspection", "xml", xml)
	return nil
}

func (c *Controller) setState(ctx context.Context, state api.ControllerState) error {
	c.status.State = state
	c.logger.Debug("state transition", "state", string(state))
	if err := common.WriteMetadata(ctx, c.metadata(), c.runDir); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWriteMetadata, err)
	}
	return nil
}

// persist is the non-fatal variant used on teardown paths.
func (c *Controller) persist(ctx context.Context) {
	if err := common.WriteMetadata(ctx, c.metadata(), c.runDir); err != nil {
		c.logger.Warn("could not persist run metadata", "error", err)
	}
}

func (c *Controller) metadata() *api.ControllerMetadata {
	status := c.status
	status.UpdatedAt = time.Now().UTC()
	return &api.ControllerMetadata{Spec: c.spec, Status: status}
}
