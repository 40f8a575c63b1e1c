// Package logging constructs the logrus logger used by cmd/peerd. The core
// package logs through logrus's standard logger instead; cmd/peerd sets that
// logger's level to match.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger writing JSON to stderr at the given level
// ("debug", "info", "warn", "error"; unrecognized values fall back to
// info), optionally tee'd to a file path.
func New(level, file string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		log.AddHook(&fileHook{file: f, formatter: &logrus.JSONFormatter{}})
	}
	return log, nil
}

// fileHook mirrors every log entry to an open file, since logrus has no
// built-in multi-writer hook.
type fileHook struct {
	file      *os.File
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.file.Write(line)
	return err
}
