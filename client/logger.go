package client

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局 SugaredLogger；未初始化时为 Nop
var Log = zap.NewNop().Sugar()

// 客户端日志体积小，保留少量本地时间命名的备份即可
const (
	logMaxSizeMB  = 5
	logMaxBackups = 2
	logMaxAgeDays = 3
)

// InitLogger 日志写入滚动文件（终端界面占用 stdout）
func InitLogger(filePath string, debug bool) error {
	if filePath == "" {
		return errors.New("log file path is empty")
	}
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		LocalTime:  true,
	})

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "t"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeName = zapcore.FullNameEncoder
	enc.ConsoleSeparator = " "

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, level)
	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named("client").Sugar()
	return nil
}

func SyncLogger() {
	_ = Log.Sync()
}
