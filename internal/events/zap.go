package events

import (
	"go.uber.org/zap"
)

// ZapSink renders events as structured zap log entries.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps the given logger. A nil logger yields a no-op sink.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

// Emit implements Sink.
func (s *ZapSink) Emit(ev Event) {
	switch ev := ev.(type) {
	case PhaseChanged:
		s.log.Info("workflow phase",
			zap.String("workflow", ev.Workflow),
			zap.String("phase", ev.Phase))
	case PollTick:
		s.log.Debug("poll tick",
			zap.String("snapshot", ev.Snapshot),
			zap.Stringer("state", ev.State),
			zap.Duration("elapsed", ev.Elapsed),
			zap.Duration("next_interval", ev.NextInterval))
	case ProbeRetried:
		s.log.Warn("probe retried",
			zap.String("snapshot", ev.Snapshot),
			zap.Int("attempt", ev.Attempt),
			zap.Error(ev.Err))
	case CandidatesSelected:
		s.log.Info("retention candidates selected",
			zap.Strings("candidates", ev.Candidates),
			zap.Int("kept", ev.Kept),
			zap.Bool("dry_run", ev.DryRun))
	case SnapshotDeleted:
		if ev.Err != nil {
			s.log.Warn("snapshot delete failed",
				zap.String("snapshot", ev.Snapshot),
				zap.Error(ev.Err))
			return
		}
		s.log.Info("snapshot deleted", zap.String("snapshot", ev.Snapshot))
	case RotationFailed:
		s.log.Warn("rotation failed", zap.Error(ev.Err))
	case IndicesReopenFailed:
		s.log.Warn("reopening indices failed",
			zap.Strings("indices", ev.Indices),
			zap.Error(ev.Err))
	default:
		s.log.Info("event", zap.String("kind", ev.Kind()))
	}
}
