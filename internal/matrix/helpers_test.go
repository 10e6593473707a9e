// ABOUTME: Shared helpers for Matrix adapter tests
// ABOUTME: Provides a discard logger

package matrix

import (
	"io"
	"log/slog"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
