// Package logging wires structured logging into the dlib task hierarchy: a
// logrus logger wrapped as a dlog.Logger and installed on the context
// before any subsystem starts.
package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/datawire/dlib/dlog"
)

// InitContext installs a logrus-backed dlog.Logger on ctx. Unlike the
// background daemon processes this core's logging is modeled on, this is a
// foreground CLI process: output always goes to stderr, never to a
// rotating log file.
func InitContext(ctx context.Context, debug bool) context.Context {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.0000"})
	level := logrus.InfoLevel
	if debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	return dlog.WithLogger(ctx, dlog.WrapLogrus(logger))
}
