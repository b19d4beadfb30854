// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"bytes"
	"sync"
)

// lineWriter splits written bytes into lines and sends each as an OutputLine.
type lineWriter struct {
	mu      sync.Mutex
	out     chan<- OutputLine
	isError bool
	buf     bytes.Buffer
}

func newLineWriter(out chan<- OutputLine, isError bool) *lineWriter {
	return &lineWriter{out: out, isError: isError}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(i+1), "\r\n"))
		w.out <- OutputLine{Line: line, IsError: w.isError}
	}
	return len(p), nil
}

// Flush sends any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.out <- OutputLine{Line: w.buf.String(), IsError: w.isError}
		w.buf.Reset()
	}
}
