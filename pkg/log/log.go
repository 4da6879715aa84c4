package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

// Config holds logging configuration
type Config struct {
	Level      string `json:"level" yaml:"level"`
	LogDir     string `json:"log_dir" yaml:"log_dir"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`       // MB
	MaxBackups int    `json:"max_backups" yaml:"max_backups"` // Number of backup files
	MaxAge     int    `json:"max_age" yaml:"max_age"`         // Days
	Compress   bool   `json:"compress" yaml:"compress"`
}

// DefaultConfig returns default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    100,
		MaxBackups: 30,
		MaxAge:     30,
		Compress:   true,
	}
}

// InitLogger initializes the logger with default configuration
func InitLogger() {
	InitLoggerWithConfig(DefaultConfig())
}

// InitLoggerWithConfig initializes the logger with custom configuration
func InitLoggerWithConfig(config *Config) {
	logger = logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		fmt.Printf("Failed to create log directory: %v\n", err)
		logger.SetOutput(os.Stdout)
	} else {
		logFile := getDailyLogFile(config.LogDir)
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
			logger.SetOutput(os.Stdout)
		} else {
			logger.SetOutput(file)
		}
	}

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	logger.WithFields(logrus.Fields{
		"component": "logger",
		"log_dir":   config.LogDir,
		"level":     config.Level,
	}).Info("Logger initialized successfully")
}

func getDailyLogFile(logDir string) string {
	today := time.Now().Format("2006-01-02")
	return filepath.Join(logDir, fmt.Sprintf("momentum-engine_%s.log", today))
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Infof(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Errorf(msg, args...)
	}
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...interface{}) {
	if logger != nil {
		logger.Fatalf(msg, args...)
	}
}

// Fatalf logs a fatal message with format and exits
func Fatalf(format string, args ...interface{}) {
	if logger != nil {
		logger.Fatalf(format, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warnf(msg, args...)
	}
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debugf(msg, args...)
	}
}

// IngestInfo logs ingest-pipeline info messages with structured fields
// (symbol, timeframe, source) for the WS/REST ingest path.
func IngestInfo(action, message string, fields map[string]interface{}) {
	withFields("ingest", action, fields).Info(message)
}

// IngestError logs ingest-pipeline failures, tagging the underlying error.
func IngestError(action, message string, err error, fields map[string]interface{}) {
	f := withFields("ingest", action, fields)
	if err != nil {
		f = f.WithField("error", err.Error())
	}
	f.Error(message)
}

// ScoringInfo logs scoring-engine decisions (state transitions, gate
// outcomes) with structured fields.
func ScoringInfo(symbol, message string, fields map[string]interface{}) {
	f := withFields("scoring", "score", fields)
	f = f.WithField("symbol", symbol)
	f.Info(message)
}

// ProviderError logs a provider adapter failure (REST call, WS read).
func ProviderError(provider, action, message string, err error) {
	f := logger
	if f == nil {
		return
	}
	fields := logrus.Fields{
		"component": "provider",
		"provider":  provider,
		"action":    action,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	f.WithFields(fields).Error(message)
}

func withFields(component, action string, extra map[string]interface{}) *logrus.Entry {
	fields := logrus.Fields{
		"component": component,
		"action":    action,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if logger == nil {
		InitLogger()
	}
	return logger.WithFields(fields)
}
