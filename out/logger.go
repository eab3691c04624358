package out

import (
	"fmt"
	"io"
	"log"
)

// Logger writes progress lines of the supervisor and its workers.
type Logger struct {
	*log.Logger
}

func NewLogger(w io.Writer, prefix string) *Logger {
	return &Logger{
		Logger: log.New(w, prefix, log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Discard returns a logger that writes nowhere
func Discard() *Logger {
	return NewLogger(io.Discard, "")
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Output(2, fmt.Sprintf("[debug] "+format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Output(2, fmt.Sprintf("[error] "+format, args...))
}
