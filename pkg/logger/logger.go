package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Initialize sets up the global logger
func Initialize(cfg *config.Config) {
	log.Logger = New(cfg)
	zerolog.SetGlobalLevel(parseLevel(cfg.LogLevel))
}

// New builds a logger from config without touching the global one. Logs go to
// stderr so stdout stays free for command output such as exports.
func New(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	if cfg.LogFile != "" {
		// File output is always JSON so it can be shipped as-is.
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	return zerolog.New(out).With().Timestamp().Caller().Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
