// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tracer

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// maxMessages bounds the trace log of a long-running server.
const maxMessages = 4096

var (
	mu            sync.Mutex
	traceMessages []string
)

// Log adds a message to the trace log. Key/value pairs are appended
// as key=value.
func Log(msg string, keyvals ...interface{}) {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(traceMessages) >= maxMessages {
		traceMessages = traceMessages[1:]
	}
	traceMessages = append(traceMessages, b.String())
}

// Messages returns a copy of the accumulated trace log.
func Messages() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(traceMessages))
	copy(out, traceMessages)
	return out
}

// Flush writes the accumulated trace log to w and resets it.
func Flush(w io.Writer) {
	mu.Lock()
	msgs := traceMessages
	// reset so the next run starts fresh
	traceMessages = nil
	mu.Unlock()

	for _, msg := range msgs {
		fmt.Fprintln(w, msg)
	}
}
