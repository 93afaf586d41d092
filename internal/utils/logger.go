package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SetupLogger opens the log file in the user config dir and returns a JSON
// logger tagged with a fresh run id. With debug the log is also written to
// stderr. The returned function closes the log file.
func SetupLogger(debug bool) (*slog.Logger, func() error, error) {
	logsdir, err := GetLogsDirectory()
	if err != nil {
		return nil, nil, fmt.Errorf("GetLogsDirectory() %w", err)
	}

	err = CreateDirectoryAndPath(logsdir, LogFileName)
	if err != nil {
		return nil, nil, fmt.Errorf("CreateDirectoryAndPath(logsdir, LogFileName) %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(logsdir, LogFileName), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0764)
	if err != nil {
		return nil, nil, fmt.Errorf("os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0764) %w", err)
	}

	var w io.Writer = logFile
	level := slog.LevelInfo
	if debug {
		w = io.MultiWriter(os.Stderr, logFile)
		level = slog.LevelDebug
	}

	return NewLogger(w, level), logFile.Close, nil
}

func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With(slog.String("run_id", uuid.NewString()))
}
