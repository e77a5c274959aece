package main

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"guess-bet-worker/config"
)

// setupLogging routes the operational log to the console and a rotated
// file, and returns the writer wins should be reported to.
func setupLogging(conf *config.GuessWorkerConfig) io.Writer {
	level, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(rotated(conf, conf.LogFile))

	return rotated(conf, conf.WinLogFile)
}

func rotated(conf *config.GuessWorkerConfig, filename string) io.Writer {
	if filename == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    conf.LogMaxSize,
		MaxBackups: conf.LogMaxBackups,
		LocalTime:  true,
	})
}
