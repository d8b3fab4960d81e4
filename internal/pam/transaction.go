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

//go:build linux && cgo

// Package pam is a minimal binding to libpam, scoped to what a fallback
// session controller needs: start a transaction, authenticate, open and
// close one session, read and write the PAM environment, end the handle.
// The conversation callback is the only place the foreign boundary is
// crossed; every message batch is routed through internal/conversation so
// the response-buffer ownership rules live in Go.
package pam

/*
#cgo LDFLAGS: -lpam
#include <security/pam_appl.h>
#include <stdlib.h>
#include "conv.h"
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/eminwux/fallbackdm/internal/conversation"
)

// Error is a PAM return code paired with its pam_strerror description.
type Error struct {
	Code int
	Desc string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pam: %s (code %d)", e.Desc, e.Code)
}

// Transaction owns one PAM handle from pam_start to pam_end. It is not
// safe for concurrent use; the controller drives it from a single thread.
type Transaction struct {
	pamh     *C.pam_handle_t
	conv     *C.struct_pam_conv
	handler  conversation.Handler
	handle   cgo.Handle
	lastCode C.int
	ended    bool
}

// Start opens a PAM transaction against service. No user is supplied to
// pam_start: the identity comes from the conversation handler when the
// stack asks for it.
func Start(service string, handler conversation.Handler) (*Transaction, error) {
	tx := &Transaction{handler: handler}
	tx.handle = cgo.NewHandle(tx)

	tx.conv = (*C.struct_pam_conv)(C.calloc(1, C.sizeof_struct_pam_conv))
	if tx.conv == nil {
		tx.handle.Delete()
		return nil, &Error{Code: int(C.PAM_BUF_ERR), Desc: "conversation alloc failed"}
	}
	C.fdm_init_conv(tx.conv, C.long(tx.handle))

	cService := C.CString(service)
	defer C.free(unsafe.Pointer(cService))

	rc := C.pam_start(cService, nil, tx.conv, &tx.pamh)
	if rc != C.PAM_SUCCESS {
		C.free(unsafe.Pointer(tx.conv))
		tx.handle.Delete()
		return nil, &Error{Code: int(rc), Desc: "pam_start failed"}
	}
	return tx, nil
}

// Authenticate runs the service's auth stack. Prompts are answered by the
// installed conversation handler.
func (tx *Transaction) Authenticate() error {
	rc := C.pam_authenticate(tx.pamh, 0)
	tx.lastCode = rc
	if rc != C.PAM_SUCCESS {
		return tx.errorf("pam_authenticate", rc)
	}
	return nil
}

// OpenSession runs the service's session stack and registers the session
// with the session manager.
func (tx *Transaction) OpenSession() error {
	rc := C.pam_open_session(tx.pamh, 0)
	tx.lastCode = rc
	if rc != C.PAM_SUCCESS {
		return tx.errorf("pam_open_session", rc)
	}
	return nil
}

// CloseSession closes a previously opened session. The code is recorded
// so End reports it to pam_end.
func (tx *Transaction) CloseSession() error {
	rc := C.pam_close_session(tx.pamh, 0)
	tx.lastCode = rc
	if rc != C.PAM_SUCCESS {
		return tx.errorf("pam_close_session", rc)
	}
	return nil
}

// PutEnv sets key=value in the PAM environment.
func (tx *Transaction) PutEnv(key, value string) error {
	kv := C.CString(key + "=" + value)
	defer C.free(unsafe.Pointer(kv))

	rc := C.pam_putenv(tx.pamh, kv)
	tx.lastCode = rc
	if rc != C.PAM_SUCCESS {
		return tx.errorf("pam_putenv", rc)
	}
	return nil
}

// GetEnv reads key from the PAM environment. The second return reports
// whether the key was present. The returned C string is owned by PAM and
// is copied, never freed.
func (tx *Transaction) GetEnv(key string) (string, bool, error) {
	ck := C.CString(key)
	defer C.free(unsafe.Pointer(ck))

	val := C.pam_getenv(tx.pamh, ck)
	if val == nil {
		return "", false, nil
	}
	return C.GoString(val), true, nil
}

// End finalizes the handle with the last recorded code. It runs exactly
// once; repeated calls are no-ops.
func (tx *Transaction) End() error {
	if tx.ended {
		return nil
	}
	tx.ended = true

	rc := C.pam_end(tx.pamh, tx.lastCode)
	tx.pamh = nil

	C.free(unsafe.Pointer(tx.conv))
	tx.conv = nil
	tx.handle.Delete()

	if rc != C.PAM_SUCCESS {
		return &Error{Code: int(rc), Desc: "pam_end failed"}
	}
	return nil
}

func (tx *Transaction) errorf(op string, rc C.int) error {
	desc := C.GoString(C.pam_strerror(tx.pamh, rc))
	return fmt.Errorf("%s: %w", op, &Error{Code: int(rc), Desc: desc})
}
