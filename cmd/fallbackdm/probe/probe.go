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

package probe

import (
	"fmt"

	"github.com/eminwux/fallbackdm/internal/env"
	"github.com/eminwux/fallbackdm/internal/logging"
	"github.com/eminwux/fallbackdm/internal/vt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewProbeCmd reports the VT keyboard mode without touching anything.
func NewProbeCmd() *cobra.Command {
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Report the keyboard mode of the virtual terminal",
		Long: `probe opens the terminal device read-only, queries its keyboard mode,
and prints the result. It never changes the terminal.

For example:
  fallbackdm probe
  fallbackdm probe --vt-device /dev/tty2
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.FromContext(cmd.Context())

			// The local flag wins; the root command binds the same
			// viper key to its own flag, so read this one directly.
			device, _ := cmd.Flags().GetString("vt-device")
			if device == "" {
				device = viper.GetString(env.VT_DEVICE.ViperKey)
			}
			if device == "" {
				device = env.VT_DEVICE.ValueOrDefault()
			}

			status := vt.Probe(device)
			status.LogTo(logger)
			fmt.Fprintln(cmd.OutOrStdout(), status.String())
			return nil
		},
	}

	probeCmd.Flags().String("vt-device", "", "Terminal device to probe")

	return probeCmd
}
