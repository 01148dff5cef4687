package log

import (
	"gopkg.in/Sirupsen/logrus.v0"
)

type Fields logrus.Fields

// Entry is a nullable logrus.Entry bound to a module. Fields are only
// materialized when the entry is actually written.
type Entry struct {
	mod    Module
	fields Fields
}

func (entry Entry) log() *logrus.Entry {
	final := logrus.StandardLogger().WithField("_mod", entry.mod.String())
	if len(entry.fields) > 0 {
		final = final.WithFields(logrus.Fields(entry.fields))
	}
	return final
}

func (entry Entry) WithField(key string, value any) Entry {
	return entry.WithFields(Fields{key: value})
}

func (entry Entry) WithFields(fields Fields) Entry {
	merged := make(Fields, len(entry.fields)+len(fields))
	for k, v := range entry.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	entry.fields = merged
	return entry
}

func (entry Entry) Debugf(format string, args ...any) {
	if entry.mod.Enabled(logrus.DebugLevel) {
		entry.log().Debugf(format, args...)
	}
}

func (entry Entry) Infof(format string, args ...any) {
	if entry.mod.Enabled(logrus.InfoLevel) {
		entry.log().Infof(format, args...)
	}
}

func (entry Entry) Warnf(format string, args ...any) {
	if entry.mod.Enabled(logrus.WarnLevel) {
		entry.log().Warnf(format, args...)
	}
}

func (entry Entry) Errorf(format string, args ...any) {
	if entry.mod.Enabled(logrus.ErrorLevel) {
		entry.log().Errorf(format, args...)
	}
}
