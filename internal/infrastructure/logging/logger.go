package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/service-kit/configs"
)

// New builds the process logger. Unknown levels fall back to info.
func New(cfg *config.LogConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

func NewWithOutput(cfg *config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.WithField("level", cfg.Level).Warn("unknown log level, using info")
	} else {
		logger.SetLevel(level)
	}
	return logger
}

// JSON logs v indented at info level. Strings must hold a JSON document; anything that
// cannot be rendered produces a warning instead.
func JSON(logger *logrus.Logger, v any) {
	if logger == nil {
		return
	}
	if s, ok := v.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			logger.WithField("value", s).Warn("failed to log JSON object")
			return
		}
		v = decoded
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.WithError(err).Warn("failed to log JSON object")
		return
	}
	logger.Info(string(b))
}
