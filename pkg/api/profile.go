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

package api

// apiVersion: fallbackdm/v1beta1
// kind: ControllerProfile

type (
	Version string
	Kind    string
)

const (
	APIVersionV1Beta1     Version = "fallbackdm/v1beta1"
	KindControllerProfile Kind    = "ControllerProfile"
)

// ControllerProfileDoc models one YAML document containing a ControllerProfile.
type ControllerProfileDoc struct {
	APIVersion Version                   `json:"apiVersion" yaml:"apiVersion"`
	Kind       Kind                      `json:"kind"       yaml:"kind"`
	Metadata   ControllerProfileMetadata `json:"metadata"   yaml:"metadata"`
	Spec       ControllerProfileSpec     `json:"spec"       yaml:"spec"`
}

type ControllerProfileMetadata struct {
	Name        string            `json:"name"                  yaml:"name"`
	Labels      map[string]string `json:"labels,omitempty"      yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

type ControllerProfileSpec struct {
	Service  string      `json:"service,omitempty"  yaml:"service,omitempty"`
	User     string      `json:"user,omitempty"     yaml:"user,omitempty"`
	Seat     string      `json:"seat,omitempty"     yaml:"seat,omitempty"`
	VTNumber string      `json:"vtNumber,omitempty" yaml:"vtNumber,omitempty"`
	VTDevice string      `json:"vtDevice,omitempty" yaml:"vtDevice,omitempty"`
	Force    bool        `json:"force,omitempty"    yaml:"force,omitempty"`
	Release  ReleaseSpec `json:"release,omitempty"  yaml:"release,omitempty"`
}

// ReleaseSpec selects the release trigger. After is a Go duration string
// ("120s", "2m") and only applies to the timer policy.
type ReleaseSpec struct {
	Policy ReleasePolicy `json:"policy,omitempty" yaml:"policy,omitempty"`
	After  string        `json:"after,omitempty"  yaml:"after,omitempty"`
}
