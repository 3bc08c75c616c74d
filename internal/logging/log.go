// Package logging builds the logrus logger shared by the camera application.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SessionKey is the log field carrying the capture session ID
const SessionKey = "session"

// Options configure the logger
type Options struct {
	// Level is a logrus level name, eg: debug, info, warn
	Level string
	// File is an optional log file path, it is rotated by size
	File string
	// NoColors disables terminal colours
	NoColors bool
	// Caller adds the file, line and function of the log call
	Caller bool
}

// New returns a logger writing to stderr and to the optional rotating file
func New(opts Options) (*logrus.Logger, error) {

	logger := logrus.New()

	level := logrus.InfoLevel

	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)

		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	logger.SetLevel(level)

	logger.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 15:04:05.000",
		HideKeys:        false,
		CallerFirst:     true,
		FieldsOrder:     []string{SessionKey, "component"},
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	writers := []io.Writer{os.Stderr}

	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetReportCaller(opts.Caller)

	return logger, nil
}

// NewSession returns an entry tagged with a fresh capture session ID
func NewSession(logger logrus.FieldLogger) *logrus.Entry {
	return logger.WithField(SessionKey, uuid.NewString())
}

// Component returns a child logger for the named component
func Component(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	return logger.WithField("component", name)
}

// Discard returns a logger that drops everything, for tests
func Discard() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
