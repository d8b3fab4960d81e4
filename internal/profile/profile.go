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

// Package profile provides helpers to load and list ControllerProfile YAMLs.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/eminwux/fallbackdm/pkg/api"
	"gopkg.in/yaml.v3"
)

// ScanAndPrint loads all profiles from a YAML file (supports multiple '---'
// documents) and prints them in a table to w.
func ScanAndPrint(ctx context.Context, path string, w io.Writer) error {
	profiles, err := LoadFromPath(ctx, path)
	if err != nil {
		return err
	}
	return PrintTable(w, profiles)
}

// LoadFromPath reads a multi-document YAML file into []api.ControllerProfileDoc.
func LoadFromPath(_ context.Context, path string) ([]api.ControllerProfileDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file %q: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes one or more YAML documents from r.
func LoadFromReader(r io.Reader) ([]api.ControllerProfileDoc, error) {
	dec := yaml.NewDecoder(r)

	var out []api.ControllerProfileDoc
	for {
		var p api.ControllerProfileDoc
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode profile: %w", err)
		}

		// Basic sanity checks; skip empty docs.
		if p.Metadata.Name == "" || string(p.APIVersion) == "" || string(p.Kind) == "" {
			slog.Debug("skipping empty/invalid profile document", "name", p.Metadata.Name)
			continue
		}
		out = append(out, p)
	}

	return out, nil
}

// PrintTable renders a compact table of profiles.
func PrintTable(w io.Writer, profiles []api.ControllerProfileDoc) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(profiles) == 0 {
		fmt.Fprintln(tw, "no profiles found")
		return tw.Flush()
	}

	fmt.Fprintln(tw, "NAME\tSERVICE\tUSER\tSEAT\tRELEASE\tAFTER")
	for _, p := range profiles {
		after := p.Spec.Release.After
		if p.Spec.Release.Policy != api.ReleaseTimer && p.Spec.Release.Policy != "" {
			after = "-"
		}
		fmt.Fprintf(
			tw,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Metadata.Name,
			p.Spec.Service,
			p.Spec.User,
			p.Spec.Seat,
			p.Spec.Release.Policy,
			after,
		)
	}

	return tw.Flush()
}

// FindByName scans the YAML file at path and returns the profile whose
// metadata.name matches. The match is case-sensitive.
func FindByName(ctx context.Context, path, name string) (*api.ControllerProfileDoc, error) {
	profiles, err := LoadFromPath(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if p.Metadata.Name == name {
			return &p, nil
		}
	}

	return nil, fmt.Errorf("profile %q not found in %s", name, path)
}

// Apply copies profile values into unset spec fields. Explicit flags win
// over the profile; the profile wins over built-in defaults, so callers
// apply it to a spec holding only what the user set.
func Apply(doc *api.ControllerProfileDoc, spec *api.ControllerSpec) error {
	if spec.Service == "" {
		spec.Service = doc.Spec.Service
	}
	if spec.User == "" {
		spec.User = doc.Spec.User
	}
	if spec.Seat == "" {
		spec.Seat = doc.Spec.Seat
	}
	if spec.VTNumber == "" {
		spec.VTNumber = doc.Spec.VTNumber
	}
	if spec.VTDevice == "" {
		spec.VTDevice = doc.Spec.VTDevice
	}
	if doc.Spec.Force {
		spec.Force = true
	}
	if spec.Release == "" && doc.Spec.Release.Policy != "" {
		spec.Release = doc.Spec.Release.Policy
	}
	if spec.ReleaseAfter == 0 && doc.Spec.Release.After != "" {
		after, err := time.ParseDuration(doc.Spec.Release.After)
		if err != nil {
			return fmt.Errorf("profile %q: parse release.after: %w", doc.Metadata.Name, err)
		}
		spec.ReleaseAfter = after
	}
	spec.ProfileName = doc.Metadata.Name
	return nil
}
