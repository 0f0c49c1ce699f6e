package logger

import (
	"bytes"
	"log"

	"github.com/gin-gonic/gin"
)

// lineWriter implements io.Writer and forwards each written line to one logger level.
type lineWriter struct {
	emit func(string)
}

func (w lineWriter) Write(p []byte) (int, error) {
	if line := bytes.TrimRight(p, "\r\n"); len(line) > 0 {
		w.emit(string(line))
	}

	return len(p), nil
}

func infoWriter(l Interface) lineWriter {
	return lineWriter{emit: func(s string) { l.Info(s) }}
}

func warnWriter(l Interface) lineWriter {
	return lineWriter{emit: func(s string) { l.Warn(s) }}
}

func errorWriter(l Interface) lineWriter {
	return lineWriter{emit: func(s string) { l.Error(s) }}
}

// SetupStdLog routes the standard library log output through l at warn level.
func SetupStdLog(l Interface) {
	log.SetFlags(0)
	log.SetOutput(warnWriter(l))
}

// SetupGin routes gin's request and error output through l.
func SetupGin(l Interface) {
	gin.DefaultWriter = infoWriter(l)
	gin.DefaultErrorWriter = errorWriter(l)
}
