package log

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ZerologLogger forwards messages to a zerolog.Logger. Level filtering is
// left to zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerolog adapts zl to the Logger interface.
func NewZerolog(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

func (z *ZerologLogger) Debug(format string, args ...interface{}) {
	z.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

func (z *ZerologLogger) Info(format string, args ...interface{}) {
	z.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (z *ZerologLogger) Warn(format string, args ...interface{}) {
	z.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

func (z *ZerologLogger) Error(format string, args ...interface{}) {
	z.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// ZerologLevel converts a Level to the matching zerolog level.
func ZerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}
