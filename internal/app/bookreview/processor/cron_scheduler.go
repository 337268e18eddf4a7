package processor

import (
	"context"
	"log"

	"bookreview/pkg/logger"
	"bookreview/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// ReconcilerInterface - фоновая сверка агрегатов рейтинга по всем книгам
type ReconcilerInterface interface {
	ReconcileAll(ctx context.Context) error
}

// CronScheduler периодически пересчитывает average_rating/total_reviews
// по всем активным книгам как страховка от рассинхронизации агрегатов
type CronScheduler struct {
	cron       *cron.Cron
	reconciler ReconcilerInterface
}

func NewCronScheduler(reconciler ReconcilerInterface) *CronScheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(log.Default())))

	return &CronScheduler{
		cron:       c,
		reconciler: reconciler,
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("Starting rating reconciliation scheduler")

	_, err := s.cron.AddFunc(schedule, func() {
		s.runReconcile(ctx)
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Msg("Rating reconciliation scheduler started")

	return nil
}

func (s *CronScheduler) runReconcile(ctx context.Context) {
	logger.Info().Msg("Rating reconciliation sweep triggered")

	timer := metrics.NewTimer()
	if err := s.reconciler.ReconcileAll(ctx); err != nil {
		metrics.RatingReconcileRuns.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("Rating reconciliation sweep failed")
	} else {
		metrics.RatingReconcileRuns.WithLabelValues("success").Inc()
		logger.Info().Float64("duration_s", timer.Seconds()).Msg("Rating reconciliation sweep completed")
	}
	metrics.RatingReconcileDuration.Observe(timer.Seconds())
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("Stopping rating reconciliation scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Rating reconciliation scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
