package cli

import (
	"os"

	"classroom-quiz-service/internal/config"
	"github.com/sirupsen/logrus"
)

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
		log.WithField("level", cfg.Log.Level).Warn("unknown log level, using info")
	}
	log.SetLevel(level)
	return log
}
