package ledger

import (
	"github.com/rs/zerolog"
)

// badgerLogger implements badger's Logger interface on top of zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func newBadgerLogger(logger zerolog.Logger) *badgerLogger {
	return &badgerLogger{log: logger.With().Str("component", "badger").Logger()}
}

func (l *badgerLogger) Errorf(msg string, args ...interface{})   { l.log.Error().Msgf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...interface{}) { l.log.Warn().Msgf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...interface{})    { l.log.Debug().Msgf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...interface{})   { l.log.Trace().Msgf(msg, args...) }
