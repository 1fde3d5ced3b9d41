package event

import (
	"go.uber.org/zap"
)

// LogSink logs every event at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a LogSink writing to logger; a nil logger discards.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("event")}
}

// Publish logs e.
func (s *LogSink) Publish(e Event) {
	if ce := s.logger.Check(zap.DebugLevel, string(e.Kind)); ce != nil {
		ce.Write(
			zap.Duration("at", e.At),
			zap.Uint64("subject", e.SubjectID),
			zap.String("ref", e.Ref),
			zap.Float64("x", e.Pos.X),
			zap.Float64("y", e.Pos.Y),
			zap.Float64("value", e.Value),
		)
	}
}
