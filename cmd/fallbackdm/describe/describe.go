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

package describe

import (
	"fmt"
	"sort"

	"github.com/eminwux/fallbackdm/internal/logging"
	"github.com/eminwux/fallbackdm/internal/logind"
	"github.com/spf13/cobra"
)

// NewDescribeCmd dumps the properties of an existing logind session.
func NewDescribeCmd() *cobra.Command {
	describeCmd := &cobra.Command{
		Use:   "describe",
		Short: "Dump the properties of a logind session",
		Long: `describe connects to the system bus, reads all properties of the
session object, and prints them. With --xml it also prints the
introspection document.

For example:
  fallbackdm describe --session-id 3
  fallbackdm describe --session-id 3 --xml
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.FromContext(cmd.Context())

			sessionID, _ := cmd.Flags().GetString("session-id")
			withXML, _ := cmd.Flags().GetBool("xml")

			ch, err := logind.Connect(logger, sessionID)
			if err != nil {
				return err
			}
			defer ch.Close()

			props, err := ch.Describe(cmd.Context())
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(props))
			for k := range props {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, props[k].String())
			}

			if withXML {
				xml, err := ch.Introspect(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, xml)
			}
			return nil
		},
	}

	describeCmd.Flags().String("session-id", "", "logind session identifier")
	_ = describeCmd.MarkFlagRequired("session-id")
	describeCmd.Flags().Bool("xml", false, "Also print the introspection XML")

	return describeCmd
}
