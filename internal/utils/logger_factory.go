package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant         = "debug"
	logLevelInfoStringConstant          = "info"
	logLevelWarnStringConstant          = "warn"
	logLevelErrorStringConstant         = "error"
	logFormatStructuredStringConstant   = "structured"
	logFormatConsoleStringConstant      = "console"
	unsupportedLogLevelMessageConstant  = "unsupported log level"
	unsupportedLogFormatMessageConstant = "unsupported log format"
	unsupportedValueTemplateConstant    = "%w: %q"
	structuredTimeKeyConstant           = "timestamp"
)

var (
	// ErrUnsupportedLogLevel indicates a log level outside debug, info, warn and error.
	ErrUnsupportedLogLevel = errors.New(unsupportedLogLevelMessageConstant)
	// ErrUnsupportedLogFormat indicates a log format other than structured or console.
	ErrUnsupportedLogFormat = errors.New(unsupportedLogFormatMessageConstant)
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// ParseLogLevel normalizes a configured level name.
func ParseLogLevel(value string) (LogLevel, error) {
	candidate := LogLevel(strings.ToLower(strings.TrimSpace(value)))
	if _, supported := logLevelMapping[candidate]; !supported {
		return "", fmt.Errorf(unsupportedValueTemplateConstant, ErrUnsupportedLogLevel, value)
	}
	return candidate, nil
}

// ParseLogFormat normalizes a configured format name.
func ParseLogFormat(value string) (LogFormat, error) {
	candidate := LogFormat(strings.ToLower(strings.TrimSpace(value)))
	switch candidate {
	case LogFormatStructured, LogFormatConsole:
		return candidate, nil
	default:
		return "", fmt.Errorf(unsupportedValueTemplateConstant, ErrUnsupportedLogFormat, value)
	}
}

// LoggerFactory builds zap loggers that write diagnostics to a single sink.
// Standard output stays reserved for command results.
type LoggerFactory struct {
	sink io.Writer
}

// NewLoggerFactory constructs a factory writing to standard error.
func NewLoggerFactory() *LoggerFactory {
	return NewLoggerFactoryWithSink(os.Stderr)
}

// NewLoggerFactoryWithSink constructs a factory writing to sink.
func NewLoggerFactoryWithSink(sink io.Writer) *LoggerFactory {
	return &LoggerFactory{sink: sink}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel string, requestedLogFormat string) (*zap.Logger, error) {
	logLevel, levelError := ParseLogLevel(requestedLogLevel)
	if levelError != nil {
		return nil, levelError
	}
	logFormat, formatError := ParseLogFormat(requestedLogFormat)
	if formatError != nil {
		return nil, formatError
	}

	var encoder zapcore.Encoder
	switch logFormat {
	case LogFormatConsole:
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfiguration.CallerKey = zapcore.OmitKey
		encoderConfiguration.NameKey = zapcore.OmitKey
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	default:
		encoderConfiguration := zap.NewProductionEncoderConfig()
		encoderConfiguration.TimeKey = structuredTimeKeyConstant
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfiguration)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(NewSynchronizedWriter(factory.sink)), logLevelMapping[logLevel])
	return zap.New(core), nil
}
