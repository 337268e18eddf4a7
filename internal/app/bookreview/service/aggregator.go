package service

import (
	"context"
	"errors"
	"fmt"

	"bookreview/internal/app/bookreview/entity"
	"bookreview/internal/app/bookreview/repository"
	"bookreview/internal/app/bookreview/util"
	"bookreview/pkg/logger"
	"bookreview/pkg/metrics"

	"github.com/google/uuid"
)

// Aggregator пересчитывает денормализованный агрегат книги
// Единственный писатель полей average_rating и total_reviews
type Aggregator interface {
	Recompute(ctx context.Context, bookID uuid.UUID) (*entity.RatingSnapshot, error)
}

// RatingAggregator связывает транзакционный пересчёт в PostgreSQL
// с инвалидацией Redis кеша книги
type RatingAggregator struct {
	aggregateRepo repository.AggregateRepository
	bookRepo      repository.BookRepository
	bookCache     util.BookCache
}

// NewRatingAggregator создает агрегатор рейтингов
func NewRatingAggregator(
	aggregateRepo repository.AggregateRepository,
	bookRepo repository.BookRepository,
	bookCache util.BookCache,
) *RatingAggregator {
	return &RatingAggregator{
		aggregateRepo: aggregateRepo,
		bookRepo:      bookRepo,
		bookCache:     bookCache,
	}
}

// Recompute пересчитывает агрегат книги по её активным отзывам.
// Скан отзывов и запись в книгу - одна транзакция (см. AggregateRepository),
// поэтому после успешного возврата агрегат точно соответствует множеству
// активных отзывов на момент скана. Ошибка хранилища прокидывается наверх:
// вызывающая операция обязана завершиться неуспехом, а не вернуть успех
// поверх заведомо устаревшего агрегата.
func (a *RatingAggregator) Recompute(ctx context.Context, bookID uuid.UUID) (*entity.RatingSnapshot, error) {
	snapshot, err := a.aggregateRepo.Recompute(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		metrics.RatingRecomputeErrors.Inc()
		return nil, fmt.Errorf("failed to recompute rating: %w", err)
	}

	metrics.RatingRecomputes.Inc()

	// Кеш инвалидируется после записи агрегата; ошибка кеша не критична,
	// читатели получат свежие данные из БД
	if err := a.bookCache.DeleteBook(ctx, bookID); err != nil {
		logger.Warn().Err(err).Str("book_id", bookID.String()).Msg("Failed to invalidate book cache after recompute")
	}

	return snapshot, nil
}

// ReconcileAll прогоняет пересчёт по всем активным книгам.
// Страховочная сверка для фонового запуска по расписанию; консистентность
// обеспечивается синхронным пересчётом на каждой мутации отзыва, а не ей.
func (a *RatingAggregator) ReconcileAll(ctx context.Context) error {
	ids, err := a.bookRepo.ListActiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books for reconciliation: %w", err)
	}

	var failed int
	for _, id := range ids {
		if _, err := a.Recompute(ctx, id); err != nil {
			// Книга могла быть удалена между выборкой и пересчётом
			if errors.Is(err, ErrBookNotFound) {
				continue
			}
			failed++
			logger.Error().Err(err).Str("book_id", id.String()).Msg("Failed to reconcile book rating")
		}
	}

	if failed > 0 {
		return fmt.Errorf("reconciliation finished with %d failures out of %d books", failed, len(ids))
	}

	return nil
}
