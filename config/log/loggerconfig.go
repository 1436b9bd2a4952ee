package log

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger  *zap.Logger
	String  = zap.String
	Any     = zap.Any
	Int     = zap.Int
	Float64 = zap.Float64
)

// logpath is the log directory
// loglevel is the log level
func InitLogger(logpath string, loglevel string) {
	// Log file splitting
	pathname := fmt.Sprintf("%s/%v.log", logpath, time.Now().Format("2006-01-02_15"))
	hook := lumberjack.Logger{
		Filename:   pathname, // Log file path
		MaxSize:    1,        // Each log file saves 1MB, default is 100MB
		MaxBackups: 30,       // Keep 30 backups, default is unlimited
		MaxAge:     30,       // Keep for 30 days, default is unlimited
		Compress:   true,     // Whether to compress, default is not to compress
	}
	write := zapcore.AddSync(&hook)
	// debug -> info -> warn -> error
	var level zapcore.Level
	switch loglevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "error":
		level = zap.ErrorLevel
	case "warn":
		level = zap.WarnLevel
	default:
		level = zap.InfoLevel
	}
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "linenum",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.FullCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	atomicLevel := zap.NewAtomicLevel()
	atomicLevel.SetLevel(level)

	var writes = []zapcore.WriteSyncer{write}
	// If in development environment, also output to console
	if level == zap.DebugLevel {
		writes = append(writes, zapcore.AddSync(os.Stdout))
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(writes...), // Print to console and file
		level,
	)

	caller := zap.AddCaller()
	development := zap.Development()
	Logger = zap.New(core, caller, development)
	Logger.Info("Logger init success")
}
