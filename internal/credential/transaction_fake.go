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

// TransactionTest is a func-field fake for tests of the credential and
// the controller. Unset fields succeed.
type TransactionTest struct {
	AuthenticateFunc func() error
	OpenSessionFunc  func() error
	CloseSessionFunc func() error
	PutEnvFunc       func(key, value string) error
	GetEnvFunc       func(key string) (string, bool, error)
	EndFunc          func() error

	AuthenticateCalls int
	OpenSessionCalls  int
	CloseSessionCalls int
	EndCalls          int
}

func (t *TransactionTest) Authenticate() error {
	t.AuthenticateCalls++
	if t.AuthenticateFunc != nil {
		return t.AuthenticateFunc()
	}
	return nil
}

func (t *TransactionTest) OpenSession() error {
	t.OpenSessionCalls++
	if t.OpenSessionFunc != nil {
		return t.OpenSessionFunc()
	}
	return nil
}

func (t *TransactionTest) CloseSession() error {
	t.CloseSessionCalls++
	if t.CloseSessionFunc != nil {
		return t.CloseSessionFunc()
	}
	return nil
}

func (t *TransactionTest) PutEnv(key, value string) error {
	if t.PutEnvFunc != nil {
		return t.PutEnvFunc(key, value)
	}
	return nil
}

func (t *TransactionTest) GetEnv(key string) (string, bool, error) {
	if t.GetEnvFunc != nil {
		return t.GetEnvFunc(key)
	}
	return "", false, nil
}

func (t *TransactionTest) End() error {
	t.EndCalls++
	if t.EndFunc != nil {
		return t.EndFunc()
	}
	return nil
}
