package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// NewHandler returns a JSON handler, or a colourised console handler when
// format is "text".
func NewHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	if format == "text" {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC1123Z,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
