// Package logging defines the logger capability injected into every
// component and builds the logrus-backed implementation used by the CLI.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the set of leveled printf-style methods components log through.
// *logrus.Logger and *logrus.Entry both satisfy it.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nop struct{}

func (nop) Tracef(string, ...interface{}) {}
func (nop) Debugf(string, ...interface{}) {}
func (nop) Infof(string, ...interface{})  {}
func (nop) Warnf(string, ...interface{})  {}
func (nop) Errorf(string, ...interface{}) {}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

// Or returns l, or Nop when l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// New builds a logrus logger writing to w.
//
// level is one of trace, debug, info, warn, error. format is "text" or
// "json".
func New(w io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q: want text or json", format)
	}
	return log, nil
}

// WithComponent tags every entry from l with a component field.
func WithComponent(l *logrus.Logger, name string) Logger {
	return l.WithField("component", name)
}
