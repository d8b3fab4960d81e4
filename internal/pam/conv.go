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

package pam

/*
#include <security/pam_appl.h>
#include <stdlib.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/eminwux/fallbackdm/internal/conversation"
)

func styleOf(msgStyle C.int) (conversation.Style, bool) {
	switch msgStyle {
	case C.PAM_PROMPT_ECHO_ON:
		return conversation.StyleEchoPrompt, true
	case C.PAM_PROMPT_ECHO_OFF:
		return conversation.StyleBlindPrompt, true
	case C.PAM_TEXT_INFO:
		return conversation.StyleInfo, true
	case C.PAM_ERROR_MSG:
		return conversation.StyleError, true
	}
	return 0, false
}

// fdmConversation is the pam_conv entry point, reached through the C
// thunk in conv.c. It converts the message batch into bridge requests,
// lets internal/conversation enforce the batch semantics, and only on a
// fully successful batch hands PAM a single calloc'd response buffer.
// PAM owns the buffer and every answer string after a success return;
// on any failure nothing is handed over.
//
//export fdmConversation
func fdmConversation(numMsg C.int, msg **C.struct_pam_message, resp **C.struct_pam_response, handle C.long) C.int {
	tx, ok := cgo.Handle(uintptr(handle)).Value().(*Transaction)
	if !ok || tx.handler == nil {
		return C.PAM_CONV_ERR
	}

	n := int(numMsg)
	if n <= 0 || msg == nil || resp == nil {
		return C.PAM_CONV_ERR
	}

	msgs := unsafe.Slice(msg, n)
	reqs := make([]conversation.Request, 0, n)
	for _, m := range msgs {
		style, known := styleOf(m.msg_style)
		if !known {
			return C.PAM_CONV_ERR
		}
		reqs = append(reqs, conversation.Request{Style: style, Text: C.GoString(m.msg)})
	}

	replies, err := conversation.Respond(tx.handler, reqs)
	if err != nil {
		// The bridge discarded every slot already; nothing was
		// allocated on the C side yet.
		return C.PAM_CONV_ERR
	}

	buf := C.calloc(C.size_t(n), C.sizeof_struct_pam_response)
	if buf == nil {
		return C.PAM_BUF_ERR
	}
	slots := unsafe.Slice((*C.struct_pam_response)(buf), n)
	for i, reply := range replies {
		if reply.Answered {
			slots[i].resp = C.CString(reply.Text)
		}
	}

	*resp = (*C.struct_pam_response)(buf)
	return C.PAM_SUCCESS
}
