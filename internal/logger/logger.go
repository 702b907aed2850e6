package logger

import (
	"os"

	"community_hub/internal/config"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop().Sugar()

// Init 初始化 zap 日志，开发模式下带调用位置
func Init(cfg config.LoggerConfig, develop bool) {
	var core zapcore.Core
	options := make([]zap.Option, 0, 2)

	writer := getWriter(cfg)
	if develop {
		core = zapcore.NewCore(getEncoder(zap.NewDevelopmentEncoderConfig()), writer, zap.DebugLevel)
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		core = zapcore.NewCore(getEncoder(zap.NewProductionEncoderConfig()), writer, zapcore.Level(cfg.Level))
	}

	logger = zap.New(core, options...).Sugar()
	Infof("Initializing logger successfully")
}

func Sync() {
	_ = logger.Sync()
}

func Debugf(template string, args ...any) {
	logger.Debugf(template, args...)
}

func Infof(template string, args ...any) {
	logger.Infof(template, args...)
}

func Warnf(template string, args ...any) {
	logger.Warnf(template, args...)
}

func Errorf(template string, args ...any) {
	logger.Errorf(template, args...)
}

// ErrorWithStack 打印 pkg/errors 携带的调用栈
func ErrorWithStack(err error) {
	logger.Errorf("%T:\nstack trace:\n%+v", errors.Cause(err), err)
}

func getEncoder(encCfg zapcore.EncoderConfig) zapcore.Encoder {
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}

func getWriter(cfg config.LoggerConfig) zapcore.WriteSyncer {
	out := make([]zapcore.WriteSyncer, 0, 2)
	if cfg.Path != "" {
		out = append(out, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}))
	}
	if cfg.Console || len(out) == 0 {
		out = append(out, zapcore.AddSync(os.Stdout))
	}
	return zapcore.NewMultiWriteSyncer(out...)
}
