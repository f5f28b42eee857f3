// Package zerolog adapts github.com/rs/zerolog to the logger.Logger
// interface. Grounded on logger/zerolog/adapter.go's method-by-method
// delegation to *zerolog.Logger.
package zerolog

import (
	"fmt"

	"github.com/raykavin/backnrun/logger"

	"github.com/rs/zerolog"
)

// Adapter wraps a *zerolog.Logger to satisfy logger.Logger.
type Adapter struct {
	*zerolog.Logger
}

// NewAdapter wraps an already-configured zerolog.Logger.
func NewAdapter(l *zerolog.Logger) *Adapter {
	return &Adapter{l}
}

func (z *Adapter) GetLevel() logger.Level {
	return toLevel(z.Logger.GetLevel())
}

func (z *Adapter) SetLevel(level logger.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

func (z *Adapter) Print(args ...any)  { z.Logger.Print(args...) }
func (z *Adapter) Trace(args ...any)  { z.Logger.Trace().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Debug(args ...any)  { z.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Info(args ...any)   { z.Logger.Info().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Warn(args ...any)   { z.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Error(args ...any)  { z.Logger.Error().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Fatal(args ...any)  { z.Logger.Fatal().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Panic(args ...any)  { z.Logger.Panic().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Printf(format string, args ...any)  { z.Logger.Printf(format, args...) }
func (z *Adapter) Tracef(format string, args ...any)  { z.Logger.Trace().Msgf(format, args...) }
func (z *Adapter) Debugf(format string, args ...any)  { z.Logger.Debug().Msgf(format, args...) }
func (z *Adapter) Infof(format string, args ...any)   { z.Logger.Info().Msgf(format, args...) }
func (z *Adapter) Warnf(format string, args ...any)   { z.Logger.Warn().Msgf(format, args...) }
func (z *Adapter) Errorf(format string, args ...any)  { z.Logger.Error().Msgf(format, args...) }
func (z *Adapter) Fatalf(format string, args ...any)  { z.Logger.Fatal().Msgf(format, args...) }
func (z *Adapter) Panicf(format string, args ...any)  { z.Logger.Panic().Msgf(format, args...) }

func (z *Adapter) WithError(err error) logger.Logger {
	l := z.With().Err(err).Logger()
	return &Adapter{&l}
}

func (z *Adapter) WithField(key string, value any) logger.Logger {
	l := z.With().Interface(key, value).Logger()
	return &Adapter{&l}
}

func (z *Adapter) WithFields(fields map[string]any) logger.Logger {
	l := z.With().Fields(fields).Logger()
	return &Adapter{&l}
}

func toLevel(level zerolog.Level) logger.Level {
	switch level {
	case zerolog.Disabled:
		return logger.Disabled
	case zerolog.TraceLevel:
		return logger.TraceLevel
	case zerolog.DebugLevel:
		return logger.DebugLevel
	case zerolog.InfoLevel:
		return logger.InfoLevel
	case zerolog.WarnLevel:
		return logger.WarnLevel
	case zerolog.ErrorLevel:
		return logger.ErrorLevel
	case zerolog.FatalLevel:
		return logger.FatalLevel
	case zerolog.PanicLevel:
		return logger.PanicLevel
	default:
		return logger.NoLevel
	}
}

func toZerologLevel(level logger.Level) zerolog.Level {
	switch level {
	case logger.Disabled:
		return zerolog.Disabled
	case logger.TraceLevel:
		return zerolog.TraceLevel
	case logger.DebugLevel:
		return zerolog.DebugLevel
	case logger.InfoLevel:
		return zerolog.InfoLevel
	case logger.WarnLevel:
		return zerolog.WarnLevel
	case logger.ErrorLevel:
		return zerolog.ErrorLevel
	case logger.FatalLevel:
		return zerolog.FatalLevel
	case logger.PanicLevel:
		return zerolog.PanicLevel
	default:
		return zerolog.NoLevel
	}
}
