package logger

import (
	"os"

	"employee-coupon/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with configuration from the environment.
type Logger struct {
	*logrus.Logger
}

// New creates a configured logger.
func New(cfg *config.LoggerConfig) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	log.SetOutput(os.Stdout)
	if cfg.File != "" {
		if file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			log.SetOutput(file)
		} else {
			log.WithError(err).Warn("Failed to open log file, falling back to stdout")
		}
	}

	return &Logger{log}
}
