package cmd

import (
	"os"
	"strings"

	"prizeledger/config"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and format to the standard logrus logger
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
	}
}
