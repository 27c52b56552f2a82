package log

import (
	"github.com/sirupsen/logrus"
)

type Fields logrus.Fields

// Entry is a nullable logrus.Entry bound to a module. Fields are evaluated
// lazily, only when the module is enabled for the requested level.
type Entry struct {
	mod        Module
	lazyfields [4]func() Fields
}

func (entry Entry) log() *logrus.Entry {
	final := std.WithField("_mod", modNames[entry.mod])
	for _, lf := range entry.lazyfields {
		if lf != nil {
			final = final.WithFields(logrus.Fields(lf()))
		}
	}
	return final
}

func (entry Entry) WithFields(fields Fields) Entry {
	return entry.WithDelayedFields(func() Fields { return fields })
}

func (entry Entry) WithField(key string, value any) Entry {
	return entry.WithDelayedFields(func() Fields {
		return Fields{key: value}
	})
}

func (entry Entry) WithDelayedFields(getfields func() Fields) Entry {
	for idx := range entry.lazyfields {
		if entry.lazyfields[idx] == nil {
			entry.lazyfields[idx] = getfields
			return entry
		}
	}
	return entry
}

func (entry Entry) Debug(args ...any) {
	if entry.mod.Enabled(DebugLevel) {
		entry.log().Debug(args...)
	}
}

func (entry Entry) Info(args ...any) {
	if entry.mod.Enabled(InfoLevel) {
		entry.log().Info(args...)
	}
}

func (entry Entry) Warn(args ...any) {
	if entry.mod.Enabled(WarnLevel) {
		entry.log().Warn(args...)
	}
}

func (entry Entry) Error(args ...any) {
	if entry.mod.Enabled(ErrorLevel) {
		entry.log().Error(args...)
	}
}

func (entry Entry) Debugf(format string, args ...any) {
	if entry.mod.Enabled(DebugLevel) {
		entry.log().Debugf(format, args...)
	}
}

func (entry Entry) Infof(format string, args ...any) {
	if entry.mod.Enabled(InfoLevel) {
		entry.log().Infof(format, args...)
	}
}

func (entry Entry) Warnf(format string, args ...any) {
	if entry.mod.Enabled(WarnLevel) {
		entry.log().Warnf(format, args...)
	}
}

func (entry Entry) Errorf(format string, args ...any) {
	if entry.mod.Enabled(ErrorLevel) {
		entry.log().Errorf(format, args...)
	}
}

func (entry Entry) Fatalf(format string, args ...any) {
	if entry.mod.Enabled(FatalLevel) {
		entry.log().Fatalf(format, args...)
	}
}
