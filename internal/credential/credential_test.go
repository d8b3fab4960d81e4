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

package credential

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/eminwux/fallbackdm/internal/errdefs"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func Test_OpenSessionBeforeAuthenticate(t *testing.T) {
	tx := &TransactionTest{}
	cred := New(newTestLogger(), tx)

	err := cred.OpenSession()
	if !errors.Is(err, errdefs.ErrPermissionDenied) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrPermissionDenied, err)
	}
	if !errors.Is(err, errdefs.ErrOpenSession) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrOpenSession, err)
	}
	if cred.HasOpenSession() {
		t.Fatalf("open-session flag must never be set on failure")
	}
	if tx.OpenSessionCalls != 0 {
		t.Fatalf("transaction must not be touched before authentication; got %d calls", tx.OpenSessionCalls)
	}
}

func Test_AuthenticateFailureLeavesFlagsUnset(t *testing.T) {
	tx := &TransactionTest{
		AuthenticateFunc: func() error { return errors.New("denied upstream") },
	}
	cred := New(newTestLogger(), tx)

	if err := cred.Authenticate(); !errors.Is(err, errdefs.ErrAuthenticate) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrAuthenticate, err)
	}
	if cred.IsAuthenticated() || cred.HasOpenSession() {
		t.Fatalf("flags must stay unset after auth failure")
	}
}

func Test_ReleaseClosesOpenSessionExactlyOnce(t *testing.T) {
	tx := &TransactionTest{}
	cred := New(newTestLogger(), tx)

	if err := cred.Authenticate(); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := cred.OpenSession(); err != nil {
		t.Fatalf("open session: %v", err)
	}

	if err := cred.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Idempotent: a second release does nothing.
	if err := cred.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}

	if tx.CloseSessionCalls != 1 {
		t.Fatalf("expected exactly one session close; got %d", tx.CloseSessionCalls)
	}
	if tx.EndCalls != 1 {
		t.Fatalf("expected exactly one end; got %d", tx.EndCalls)
	}
}

func Test_ReleaseCloseFailureStillEndsHandle(t *testing.T) {
	tx := &TransactionTest{
		CloseSessionFunc: func() error { return errors.New("close refused") },
	}
	cred := New(newTestLogger(), tx)

	_ = cred.Authenticate()
	_ = cred.OpenSession()

	err := cred.Release()
	if !errors.Is(err, errdefs.ErrCloseSession) {
		t.Fatalf("expected '%v'; got: '%v'", errdefs.ErrCloseSession, err)
	}
	if tx.EndCalls != 1 {
		t.Fatalf("handle must be finalized despite close failure; got %d end calls", tx.EndCalls)
	}
}

func Test_ReleaseWithoutOpenSessionSkipsClose(t *testing.T) {
	tx := &TransactionTest{
		AuthenticateFunc: func() error { return errors.New("denied") },
	}
	cred := New(newTestLogger(), tx)

	_ = cred.Authenticate()
	if err := cred.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if tx.CloseSessionCalls != 0 {
		t.Fatalf("no session close may be attempted without an open session; got %d", tx.CloseSessionCalls)
	}
	if tx.EndCalls != 1 {
		t.Fatalf("handle must still be finalized; got %d end calls", tx.EndCalls)
	}
}

func Test_ReleaseHonorsCloseOnRelease(t *testing.T) {
	tx := &TransactionTest{}
	cred := New(newTestLogger(), tx)
	cred.CloseOnRelease = false

	_ = cred.Authenticate()
	_ = cred.OpenSession()
	if err := cred.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if tx.CloseSessionCalls != 0 {
		t.Fatalf("CloseOnRelease=false must skip the session close; got %d", tx.CloseSessionCalls)
	}
	if tx.EndCalls != 1 {
		t.Fatalf("handle must still be finalized exactly once; got %d", tx.EndCalls)
	}
}

func Test_EnvPassthrough(t *testing.T) {
	env := map[string]string{}
	tx := &TransactionTest{
		PutEnvFunc: func(key, value string) error {
			env[key] = value
			return nil
		},
		GetEnvFunc: func(key string) (string, bool, error) {
			v, ok := env[key]
			return v, ok, nil
		},
	}
	cred := New(newTestLogger(), tx)

	if err := cred.SetEnv("XDG_SEAT", "seat0"); err != nil {
		t.Fatalf("set env: %v", err)
	}
	val, ok, err := cred.GetEnv("XDG_SEAT")
	if err != nil || !ok || val != "seat0" {
		t.Fatalf("expected seat0; got %q ok=%v err=%v", val, ok, err)
	}

	_, ok, err = cred.GetEnv("XDG_SESSION_ID")
	if err != nil || ok {
		t.Fatalf("expected absent key; got ok=%v err=%v", ok, err)
	}
}
