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
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eminwux/fallbackdm/cmd/fallbackdm/describe"
	"github.com/eminwux/fallbackdm/cmd/fallbackdm/probe"
	"github.com/eminwux/fallbackdm/cmd/fallbackdm/profiles"
	"github.com/eminwux/fallbackdm/internal/controller"
	"github.com/eminwux/fallbackdm/internal/env"
	"github.com/eminwux/fallbackdm/internal/errdefs"
	"github.com/eminwux/fallbackdm/internal/logging"
	"github.com/eminwux/fallbackdm/internal/profile"
	"github.com/eminwux/fallbackdm/pkg/api"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func main() {
	rootCmd := NewRootCmd()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	// rootCmd represents the base command when called without any subcommands.
	rootCmd := &cobra.Command{
		Use:   "fallbackdm",
		Short: "fallbackdm minimal fallback session controller",
		Long: `fallbackdm opens a logind session for a local user, takes exclusive
control of it so the virtual terminal stops consuming input, and gives
control back when the release condition fires.

You can see available options and commands with:
  fallbackdm help

If you run fallbackdm with no options, it authenticates against the
"fallbackdm" PAM service and holds control for 120 seconds.

You can also use fallbackdm with parameters. For example:
  fallbackdm --log-level=debug
  fallbackdm --release input
  fallbackdm probe --vt-device /dev/tty1
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := LoadConfig()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Config error:", err)
				os.Exit(1)
			}
			return setupLogger(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.FromContext(cmd.Context())

			spec, err := buildControllerSpec(cmd.Context(), logger)
			if err != nil {
				logger.Error("failed to build controller spec", "error", err)
				return err
			}

			logger.Debug("controller spec built",
				"service", spec.Service,
				"user", spec.User,
				"seat", spec.Seat,
				"vtDevice", spec.VTDevice,
				"vtNumber", spec.VTNumber,
				"force", spec.Force,
				"release", string(spec.Release),
				"releaseAfter", spec.ReleaseAfter.String(),
				"runPath", spec.RunPath,
				"profile", spec.ProfileName,
			)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			ctrl := controller.New(logger, spec)

			return runController(ctx, cancel, logger, ctrl)
		},
	}

	setupRootCmd(rootCmd)

	return rootCmd
}

func setupRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(probe.NewProbeCmd())
	rootCmd.AddCommand(describe.NewDescribeCmd())
	rootCmd.AddCommand(profiles.NewProfilesCmd())

	// Persistent flags
	var pf *pflag.FlagSet = rootCmd.PersistentFlags()

	pf.String("run-path", "", "Optional run path for controller state")
	_ = viper.BindPFlag(env.RUN_PATH.ViperKey, pf.Lookup("run-path"))

	pf.String("config", "", "config file (default is $HOME/.fallbackdm/config.yaml)")
	_ = viper.BindPFlag(env.CONFIG_FILE.ViperKey, pf.Lookup("config"))

	pf.String("profiles", "", "profiles manifests file")
	_ = viper.BindPFlag(env.PROFILES_FILE.ViperKey, pf.Lookup("profiles"))

	pf.String("log-level", "", "Optional log level (debug, info, warn, error)")
	_ = viper.BindPFlag(env.LOG_LEVEL.ViperKey, pf.Lookup("log-level"))

	pf.String("log-file", "", "Optional file to write log lines to")
	_ = viper.BindPFlag(env.LOG_FILE.ViperKey, pf.Lookup("log-file"))

	// Controller flags
	rootCmd.Flags().String("service", "", "PAM service name to authenticate against")
	_ = viper.BindPFlag(env.SERVICE.ViperKey, rootCmd.Flags().Lookup("service"))

	rootCmd.Flags().String("user", "", "User the conversation answers login prompts with")
	_ = viper.BindPFlag(env.USER.ViperKey, rootCmd.Flags().Lookup("user"))

	rootCmd.Flags().String("seat", "", "Seat whose input devices satisfy the input release policy")
	_ = viper.BindPFlag(env.SEAT.ViperKey, rootCmd.Flags().Lookup("seat"))

	rootCmd.Flags().String("vt-device", "", "Terminal device probed for keyboard mode")
	_ = viper.BindPFlag(env.VT_DEVICE.ViperKey, rootCmd.Flags().Lookup("vt-device"))

	rootCmd.Flags().String("vt-number", "", "Optional XDG_VTNR value for the session")
	_ = viper.BindPFlag(env.VT_NUMBER.ViperKey, rootCmd.Flags().Lookup("vt-number"))

	rootCmd.Flags().Bool("force", false, "Force TakeControl even if another controller holds the session")
	_ = viper.BindPFlag("fallbackdm.controller.force", rootCmd.Flags().Lookup("force"))

	rootCmd.Flags().String("release", "", "Release policy: timer or input")
	_ = viper.BindPFlag(env.RELEASE.ViperKey, rootCmd.Flags().Lookup("release"))

	rootCmd.Flags().String("release-after", "", "Hold duration for the timer policy (e.g. 120s)")
	_ = viper.BindPFlag(env.RELEASE_AFTER.ViperKey, rootCmd.Flags().Lookup("release-after"))

	rootCmd.Flags().StringP("profile", "p", "", "Optional controller profile name")
	_ = viper.BindPFlag("fallbackdm.controller.profile", rootCmd.Flags().Lookup("profile"))
}

// setupLogger routes log lines to the configured file, or to stdout with
// the compact format when stdout is a terminal.
func setupLogger(cmd *cobra.Command) error {
	loglevel := viper.GetString(env.LOG_LEVEL.ViperKey)
	if logfile := viper.GetString(env.LOG_FILE.ViperKey); logfile != "" {
		return logging.SetupFileLogger(cmd, logfile, loglevel)
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(logging.ParseLevel(loglevel))

	inner := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar})
	var handler slog.Handler = inner
	if term.IsTerminal(int(os.Stdout.Fd())) {
		handler = &logging.ReformatHandler{Inner: inner, Writer: os.Stdout}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	ctx = context.WithValue(ctx, logging.CtxLogger, logger)
	ctx = context.WithValue(ctx, logging.CtxLevelVar, levelVar)
	cmd.SetContext(ctx)
	return nil
}

// buildControllerSpec merges flags/env, the selected profile, and the
// built-in defaults, in that order of precedence.
func buildControllerSpec(ctx context.Context, logger *slog.Logger) (*api.ControllerSpec, error) {
	spec := &api.ControllerSpec{
		Service:  viper.GetString(env.SERVICE.ViperKey),
		User:     viper.GetString(env.USER.ViperKey),
		Seat:     viper.GetString(env.SEAT.ViperKey),
		VTDevice: viper.GetString(env.VT_DEVICE.ViperKey),
		VTNumber: viper.GetString(env.VT_NUMBER.ViperKey),
		Force:    viper.GetBool("fallbackdm.controller.force"),
		Release:  api.ReleasePolicy(viper.GetString(env.RELEASE.ViperKey)),
		RunPath:  viper.GetString(env.RUN_PATH.ViperKey),
	}
	if after := viper.GetString(env.RELEASE_AFTER.ViperKey); after != "" {
		d, err := time.ParseDuration(after)
		if err != nil {
			return nil, fmt.Errorf("parse release-after: %w", err)
		}
		spec.ReleaseAfter = d
	}

	if name := viper.GetString("fallbackdm.controller.profile"); name != "" {
		doc, err := profile.FindByName(ctx, viper.GetString(env.PROFILES_FILE.ViperKey), name)
		if err != nil {
			return nil, err
		}
		logger.Debug("applying controller profile", "profile", name)
		if err := profile.Apply(doc, spec); err != nil {
			return nil, err
		}
	}

	// Built-in defaults fill whatever is still unset.
	if spec.Service == "" {
		spec.Service = env.SERVICE.ValueOrDefault()
	}
	if spec.User == "" {
		spec.User = env.USER.ValueOrDefault()
	}
	if spec.Seat == "" {
		spec.Seat = env.SEAT.ValueOrDefault()
	}
	if spec.VTDevice == "" {
		spec.VTDevice = env.VT_DEVICE.ValueOrDefault()
	}
	if spec.Release == "" {
		spec.Release = api.ReleasePolicy(env.RELEASE.ValueOrDefault())
	}
	if spec.ReleaseAfter == 0 {
		d, err := time.ParseDuration(env.RELEASE_AFTER.ValueOrDefault())
		if err != nil {
			return nil, fmt.Errorf("parse default release-after: %w", err)
		}
		spec.ReleaseAfter = d
	}

	if spec.Release != api.ReleaseTimer && spec.Release != api.ReleaseInput {
		return nil, fmt.Errorf("unknown release policy %q (want timer or input)", spec.Release)
	}
	return spec, nil
}

func runController(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *slog.Logger,
	ctrl *controller.Controller,
) error {
	defer cancel()

	errCh := make(chan error, 1)

	logger.DebugContext(ctx, "starting controller goroutine")
	go func() {
		errCh <- ctrl.Run(ctx)
		close(errCh)
		logger.DebugContext(ctx, "controller goroutine exited")
	}()

	err := <-errCh
	switch {
	case err == nil:
		logger.InfoContext(ctx, "controller finished", "state", string(ctrl.Status().State))
		return nil
	case errors.Is(err, errdefs.ErrContextDone), errors.Is(err, context.Canceled):
		// Interrupted by signal; control and session were already torn
		// down on the way out.
		logger.InfoContext(ctx, "controller interrupted", "error", err)
		return nil
	default:
		logger.ErrorContext(ctx, "controller failed", "error", err)
		return err
	}
}

// LoadConfig loads config.yaml from the given path or HOME/.fallbackdm.
func LoadConfig() error {
	var configFile string
	if viper.GetString(env.CONFIG_FILE.ViperKey) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("err: %v", err)
		}
		configPath := filepath.Join(home, ".fallbackdm")
		configFile = filepath.Join(configPath, "config.yaml")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configPath)
	}
	_ = env.CONFIG_FILE.BindEnv()
	_ = env.CONFIG_FILE.Set(configFile)

	var runPath string
	if viper.GetString(env.RUN_PATH.ViperKey) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("err: %v", err)
		}
		runPath = filepath.Join(home, ".fallbackdm", "run")
	}
	_ = env.RUN_PATH.BindEnv()
	env.RUN_PATH.SetDefault(runPath)

	var profilesFile string
	if viper.GetString(env.PROFILES_FILE.ViperKey) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("err: %v", err)
		}
		profilesFile = filepath.Join(home, ".fallbackdm", "profiles.yaml")
	}
	_ = env.PROFILES_FILE.BindEnv()
	env.PROFILES_FILE.SetDefault(profilesFile)

	_ = env.LOG_LEVEL.BindEnv()
	env.LOG_LEVEL.SetDefault("info")
	_ = env.LOG_FILE.BindEnv()

	// Controller vars only bind their env names; their defaults are
	// applied after profile resolution so a profile can still win.
	for _, v := range []env.Var{
		env.SERVICE, env.USER, env.SEAT,
		env.VT_DEVICE, env.VT_NUMBER,
		env.RELEASE, env.RELEASE_AFTER,
	} {
		_ = v.BindEnv()
	}

	if err := viper.ReadInConfig(); err != nil {
		// File not found is OK if ENV is set
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return err // Config file was found but another error was produced
		}
	}

	return nil
}
