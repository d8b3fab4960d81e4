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

package profiles

import (
	"github.com/eminwux/fallbackdm/internal/env"
	"github.com/eminwux/fallbackdm/internal/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:          "list",
		Short:        "List profiles from the profiles manifests file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := viper.GetString(env.PROFILES_FILE.ViperKey)
			return profile.ScanAndPrint(cmd.Context(), path, cmd.OutOrStdout())
		},
	}

	return listCmd
}
