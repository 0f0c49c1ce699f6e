package logger

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file. Sizes are in megabytes, ages in days.
type FileOptions struct {
	Path       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// NewWithFile logs to stdout and to a size-rotated file. Close the returned closer on exit.
func NewWithFile(level string, opts FileOptions) (*Logger, io.Closer) {
	file := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}

	return NewWithWriter(level, io.MultiWriter(os.Stdout, file)), file
}
