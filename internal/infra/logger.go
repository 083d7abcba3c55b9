package infra

import (
	"io"
	"log"
	"log/slog"
	"strings"
)

// NewLogger returns the process logger. format "json" routes every line
// through slog's JSON handler, one object per line with time, level and
// msg; anything else writes plain timestamped text.
func NewLogger(w io.Writer, format string) *log.Logger {
	if strings.EqualFold(format, "json") {
		return slog.NewLogLogger(slog.NewJSONHandler(w, nil), slog.LevelInfo)
	}
	return log.New(w, "", log.LstdFlags)
}
