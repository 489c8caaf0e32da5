package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

var globalLogger *slog.Logger

// ParseLevel ログレベル文字列をslog.Levelに変換
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// InitLogger ログレベルに応じてslogを初期化
func InitLogger(level string) error {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	setGlobal(slog.New(newHandler(os.Stdout, slogLevel)))
	return nil
}

// InitLoggerWithFile 標準出力とログファイルの両方に出力するslogを初期化
// 返されたio.Closerでログファイルを閉じる
func InitLoggerWithFile(level, path string) (io.Closer, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	setGlobal(New(slogLevel, os.Stdout, f))
	return f, nil
}

// New 複数の出力先へ同じレコードを書き出すロガーを作成
func New(level slog.Level, writers ...io.Writer) *slog.Logger {
	handlers := make([]slog.Handler, 0, len(writers))
	for _, w := range writers {
		handlers = append(handlers, newHandler(w, level))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
}

func setGlobal(l *slog.Logger) {
	globalLogger = l
	slog.SetDefault(globalLogger)
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		// デフォルトロガーを返す
		return slog.Default()
	}
	return globalLogger
}
