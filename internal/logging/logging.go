// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string
	Format string // "text" or "json"
	File   string // optional rotated log file, in addition to stderr
}

// Setup configures the standard logrus logger. The returned closer releases
// the rotated file, if any.
func Setup(opts Options) (io.Closer, error) {
	return configure(logrus.StandardLogger(), opts)
}

func configure(log *logrus.Logger, opts Options) (io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = lvl
	}
	log.SetLevel(level)

	var formatter logrus.Formatter
	switch opts.Format {
	case "json":
		formatter = &logrus.JSONFormatter{}
	case "", "text":
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	log.SetFormatter(formatter)
	log.SetOutput(os.Stderr)

	if opts.File == "" {
		return io.NopCloser(nil), nil
	}

	rotate := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    20, // megabytes
		MaxBackups: 2,
		MaxAge:     10, // days
	}
	log.AddHook(&fileHook{rotate: rotate, formatter: formatter})

	return rotate, nil
}

type fileHook struct {
	sync.Mutex
	rotate    *lumberjack.Logger
	formatter logrus.Formatter
}

// Fire writes the formatted entry to the rotated file.
func (hook *fileHook) Fire(entry *logrus.Entry) error {
	hook.Lock()
	defer hook.Unlock()

	msg, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = hook.rotate.Write(msg)
	return err
}

func (hook *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
