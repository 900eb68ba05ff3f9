package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

// Init configures the shared logger with the given level and format.
// If w is nil, os.Stderr is used. Format must be "text" or "json".
func Init(level, format string, w ...io.Writer) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}
	base.SetOutput(writer)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	switch format {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Logger returns the shared logger
func Logger() *logrus.Logger {
	return base
}

// New returns a logger with a "component" field for module-scoped logging.
func New(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// Discard returns an entry that drops everything, for tests and quiet callers.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
