package zerolog

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// New builds a console or JSON zerolog.Logger at the given level, grounded
// on pkg/logger/zerolog/zerolog.go's NewZerolog constructor. Console coloring
// comes from zerolog.ConsoleWriter's own NoColor flag rather than a separate
// terminal-coloring dependency.
func New(level, dateTimeLayout string, colored, jsonFormat bool) (*Adapter, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logMode, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(logMode)

	var base zerolog.Logger
	if jsonFormat {
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		out := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			NoColor:    !colored,
			TimeFormat: dateTimeLayout,
		}
		base = zerolog.New(out).With().Timestamp().Logger()
	}

	return &Adapter{&base}, nil
}
