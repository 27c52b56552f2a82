package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

type Level uint32

// Same ordering as logrus: the lower the value, the more severe the level.
const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

var (
	std      = newLogger()
	disabled bool
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Level = logrus.DebugLevel
	l.Formatter = &logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05.000",
	}
	return l
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Disable silences every module, errors included.
func Disable() {
	disabled = true
}
