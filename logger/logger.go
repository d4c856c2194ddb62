// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the shared logging capability for the package
// manager, used both as a CLI on developer machines and in CI.
package logger

import (
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spazyCZ/agent-package-manager-sub001/env"
)

// Environment variables controlling logger behavior.
const (
	// EnvLogJSON switches output to structured JSON when truthy. The
	// default is human-readable console output, which suits a CLI.
	EnvLogJSON = "AAM_LOG_JSON"
	// EnvDebug enables debug-level logging when truthy.
	EnvDebug = "AAM_DEBUG"
)

// Debug logs a message at debug level using the singleton logger.
func Debug(msg string) {
	zap.S().Debug(msg)
}

// Debugf logs a formatted message at debug level using the singleton logger.
func Debugf(msg string, args ...any) {
	zap.S().Debugf(msg, args...)
}

// Debugw logs a message at debug level using the singleton logger with additional key-value pairs.
func Debugw(msg string, keysAndValues ...any) {
	zap.S().Debugw(msg, keysAndValues...)
}

// Info logs a message at info level using the singleton logger.
func Info(msg string) {
	zap.S().Info(msg)
}

// Infof logs a formatted message at info level using the singleton logger.
func Infof(msg string, args ...any) {
	zap.S().Infof(msg, args...)
}

// Infow logs a message at info level using the singleton logger with additional key-value pairs.
func Infow(msg string, keysAndValues ...any) {
	zap.S().Infow(msg, keysAndValues...)
}

// Warn logs a message at warning level using the singleton logger.
func Warn(msg string) {
	zap.S().Warn(msg)
}

// Warnf logs a formatted message at warning level using the singleton logger.
func Warnf(msg string, args ...any) {
	zap.S().Warnf(msg, args...)
}

// Warnw logs a message at warning level using the singleton logger with additional key-value pairs.
func Warnw(msg string, keysAndValues ...any) {
	zap.S().Warnw(msg, keysAndValues...)
}

// Error logs a message at error level using the singleton logger.
func Error(msg string) {
	zap.S().Error(msg)
}

// Errorf logs a formatted message at error level using the singleton logger.
func Errorf(msg string, args ...any) {
	zap.S().Errorf(msg, args...)
}

// Errorw logs a message at error level using the singleton logger with additional key-value pairs.
func Errorw(msg string, keysAndValues ...any) {
	zap.S().Errorw(msg, keysAndValues...)
}

// NewLogr returns a logr.Logger backed by the singleton zap logger, for
// libraries that take logr.
func NewLogr() logr.Logger {
	return zapr.NewLogger(zap.L())
}

// Initialize configures the singleton logger from the process
// environment: console output to stderr by default, JSON to stdout when
// AAM_LOG_JSON is truthy, debug level when AAM_DEBUG is truthy.
func Initialize() {
	InitializeWithEnv(&env.OSReader{})
}

// InitializeWithEnv configures the singleton logger with an injected
// environment reader, so tests can drive the configuration without
// touching the process environment.
func InitializeWithEnv(envReader env.Reader) {
	var config zap.Config
	if boolEnv(envReader, EnvLogJSON) {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.Kitchen)
		config.OutputPaths = []string{"stderr"}
		config.DisableStacktrace = true
		config.DisableCaller = true
	}

	if boolEnv(envReader, EnvDebug) {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	zap.ReplaceGlobals(zap.Must(config.Build()))
}

// boolEnv reads a boolean environment variable; unset or unparsable
// values are false.
func boolEnv(envReader env.Reader, key string) bool {
	value, err := strconv.ParseBool(envReader.Getenv(key))
	if err != nil {
		return false
	}
	return value
}
