package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/solenne/bistoury/services/rag_service"
)

// Scheduler periodically checks whether the pgvector ivfflat index needs
// rebuilding as the corpus grows. It is only started when the pgvector
// backend is active.
type Scheduler struct {
	manager       *rag_service.IndexManager
	checkInterval time.Duration
	logger        *slog.Logger
}

func New(manager *rag_service.IndexManager, checkInterval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		manager:       manager,
		checkInterval: checkInterval,
		logger:        logger,
	}
}

// Start blocks until the context is cancelled; run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting index maintenance scheduler",
		slog.Duration("interval", s.checkInterval))

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Index maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.manager.ReindexIfNeeded(ctx); err != nil {
				s.logger.Error("Index maintenance check failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
