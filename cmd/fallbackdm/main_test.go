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

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eminwux/fallbackdm/internal/env"
	"github.com/eminwux/fallbackdm/pkg/api"
	"github.com/spf13/viper"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func Test_BuildControllerSpecDefaults(t *testing.T) {
	resetViper(t)

	spec, err := buildControllerSpec(context.Background(), newTestLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if spec.Service != "fallbackdm" || spec.User != "root" || spec.Seat != "seat0" {
		t.Fatalf("unexpected defaults: %+v", spec)
	}
	if spec.VTDevice != "/dev/tty1" {
		t.Fatalf("unexpected vt device: %q", spec.VTDevice)
	}
	if spec.Release != api.ReleaseTimer || spec.ReleaseAfter != 120*time.Second {
		t.Fatalf("unexpected release defaults: %+v", spec)
	}
}

func Test_BuildControllerSpecExplicitValuesWin(t *testing.T) {
	resetViper(t)

	viper.Set(env.USER.ViperKey, "kiosk")
	viper.Set(env.RELEASE.ViperKey, "input")
	viper.Set(env.VT_NUMBER.ViperKey, "2")

	spec, err := buildControllerSpec(context.Background(), newTestLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if spec.User != "kiosk" || spec.Release != api.ReleaseInput || spec.VTNumber != "2" {
		t.Fatalf("explicit values must win: %+v", spec)
	}
}

func Test_BuildControllerSpecRejectsBadPolicy(t *testing.T) {
	resetViper(t)

	viper.Set(env.RELEASE.ViperKey, "whenever")
	if _, err := buildControllerSpec(context.Background(), newTestLogger()); err == nil {
		t.Fatalf("unknown release policy must be rejected")
	}
}

func Test_BuildControllerSpecRejectsBadDuration(t *testing.T) {
	resetViper(t)

	viper.Set(env.RELEASE_AFTER.ViperKey, "a while")
	if _, err := buildControllerSpec(context.Background(), newTestLogger()); err == nil {
		t.Fatalf("unparseable release-after must be rejected")
	}
}

func Test_BuildControllerSpecAppliesProfile(t *testing.T) {
	resetViper(t)

	profilesFile := filepath.Join(t.TempDir(), "profiles.yaml")
	manifest := `apiVersion: fallbackdm/v1beta1
kind: ControllerProfile
metadata:
  name: kiosk
spec:
  user: kiosk
  vtDevice: /dev/tty2
  release:
    policy: input
`
	if err := os.WriteFile(profilesFile, []byte(manifest), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	viper.Set(env.PROFILES_FILE.ViperKey, profilesFile)
	viper.Set("fallbackdm.controller.profile", "kiosk")
	viper.Set(env.USER.ViperKey, "operator") // explicit value beats the profile

	spec, err := buildControllerSpec(context.Background(), newTestLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if spec.User != "operator" {
		t.Fatalf("explicit user must win over profile; got %q", spec.User)
	}
	if spec.VTDevice != "/dev/tty2" || spec.Release != api.ReleaseInput {
		t.Fatalf("profile values must fill unset fields: %+v", spec)
	}
	if spec.ProfileName != "kiosk" {
		t.Fatalf("profile name must be recorded; got %q", spec.ProfileName)
	}
}

func Test_RootCmdParsesFlags(t *testing.T) {
	resetViper(t)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"--release", "input", "--seat", "seat1"})
	if err := rootCmd.ParseFlags([]string{"--release", "input", "--seat", "seat1"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if got := viper.GetString(env.RELEASE.ViperKey); got != "input" {
		t.Fatalf("release flag not bound; got %q", got)
	}
	if got := viper.GetString(env.SEAT.ViperKey); got != "seat1" {
		t.Fatalf("seat flag not bound; got %q", got)
	}
}
