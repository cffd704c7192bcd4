package logging

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pathbridge/pathbridge/internal/config"
)

// New builds a logrus.Logger for the given trace level and log path.
// TraceOff maps to WarnLevel (backing-filesystem errors still surface),
// TraceTransformOnly to InfoLevel (mount lifecycle plus per-transform
// outcomes), and TraceVerbose to DebugLevel (every dispatched
// operation).
func New(trace config.TraceLevel, logPath string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetLevel(levelFor(trace))

	if logPath == "" {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.TextFormatter{})
		return log, nil
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(file)

	if isTerminal(os.Stderr) {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}

func levelFor(trace config.TraceLevel) logrus.Level {
	switch trace {
	case config.TraceVerbose:
		return logrus.DebugLevel
	case config.TraceTransformOnly:
		return logrus.InfoLevel
	default:
		return logrus.WarnLevel
	}
}

// isTerminal is a best-effort check for a character device. New calls
// it on os.Stderr to choose the log file's formatter; the empty-path
// os.Stderr fallback always uses the text formatter.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
