// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package logger

import (
	"context"
	"log/slog"
)

// ctxKey is an unexported type to prevent collisions with context keys from other packages.
type ctxKey struct{}

// WithContext returns a new context carrying l.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext extracts the logger stored by WithContext. Without one it
// returns the package default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Logger()
}
