package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookreview/internal/app/bookreview/entity"
	"bookreview/internal/app/bookreview/repository"
	"bookreview/internal/app/bookreview/util"
	"bookreview/pkg/logger"
	"bookreview/pkg/metrics"

	"github.com/google/uuid"
)

// ReviewService обрабатывает бизнес-логику отзывов.
// Каждая мутация отзыва, меняющая множество активных отзывов книги или
// их оценки, в рамках той же операции вызывает пересчёт агрегата книги -
// успех не возвращается, пока агрегат не записан.
type ReviewService struct {
	reviewRepo    repository.ReviewRepository
	bookRepo      repository.BookRepository
	aggregator    Aggregator
	kafkaProducer util.MessagePublisher
}

// NewReviewService создает новый сервис отзывов с внедрением зависимостей
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	bookRepo repository.BookRepository,
	aggregator Aggregator,
	kafkaProducer util.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		reviewRepo:    reviewRepo,
		bookRepo:      bookRepo,
		aggregator:    aggregator,
		kafkaProducer: kafkaProducer,
	}
}

// CreateReview создает новый отзыв на книгу
// 1. Книга должна существовать и быть активной
// 2. У пользователя не должно быть активного отзыва на эту книгу
// 3. После вставки пересчитывается агрегат книги
func (s *ReviewService) CreateReview(ctx context.Context, bookID, userID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error) {
	if _, err := s.bookRepo.GetActiveByID(ctx, bookID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to verify book: %w", err)
	}

	existing, err := s.reviewRepo.GetActiveByBookAndUser(ctx, bookID, userID)
	if err != nil && !errors.Is(err, repository.ErrReviewNotFound) {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateReview
	}

	now := time.Now()
	review := &entity.Review{
		ID:        uuid.New(),
		BookID:    bookID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		// Гонка с параллельной вставкой: проверку выше прошли оба,
		// но уникальный индекс пропустил только одного
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	snapshot, err := s.aggregator.Recompute(ctx, bookID)
	if err != nil {
		return nil, err
	}

	metrics.ReviewsCreated.Inc()
	metrics.ReviewsRating.Observe(float64(review.Rating))

	s.publishReviewEvent(ctx, "REVIEW_CREATED", review, snapshot)

	return review, nil
}

// GetReview получает отзыв по ID
func (s *ReviewService) GetReview(ctx context.Context, reviewID uuid.UUID) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	if !review.IsActive {
		return nil, ErrReviewNotFound
	}

	return review, nil
}

// GetBookReviews получает активные отзывы книги с распределением оценок
func (s *ReviewService) GetBookReviews(ctx context.Context, bookID uuid.UUID, page, limit int) (*entity.BookReviewsResponse, error) {
	book, err := s.bookRepo.GetActiveByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	reviews, total, err := s.reviewRepo.GetActiveByBook(ctx, bookID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	distribution, err := s.reviewRepo.RatingDistribution(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating distribution: %w", err)
	}

	return &entity.BookReviewsResponse{
		Book:               *book,
		Reviews:            reviews,
		RatingDistribution: distribution,
		Pagination:         entity.NewPagination(page, limit, total),
	}, nil
}

// GetUserReviews получает активные отзывы пользователя
func (s *ReviewService) GetUserReviews(ctx context.Context, userID uuid.UUID, page, limit int) (*entity.ReviewListResponse, error) {
	reviews, total, err := s.reviewRepo.GetActiveByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get user reviews: %w", err)
	}

	return &entity.ReviewListResponse{
		Reviews:    reviews,
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

// UpdateReview обновляет отзыв с проверкой прав доступа
// Обновлять отзыв может только его автор; после записи пересчитывается
// агрегат книги
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, requesterID uuid.UUID, req *entity.UpdateReviewRequest) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	if !review.IsActive {
		return nil, ErrReviewNotFound
	}

	if review.UserID != requesterID {
		return nil, ErrForbidden
	}

	// Обновляем только переданные поля
	if req.Rating > 0 {
		review.Rating = req.Rating
	}
	if req.Comment != "" {
		review.Comment = req.Comment
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	snapshot, err := s.aggregator.Recompute(ctx, review.BookID)
	if err != nil {
		return nil, err
	}

	s.publishReviewEvent(ctx, "REVIEW_UPDATED", review, snapshot)

	return review, nil
}

// DeleteReview удаляет отзыв с проверкой прав доступа.
// Штатное удаление - мягкое (is_active=false); permanent удаляет строку.
// Оба пути выводят отзыв из множества активных и пересчитывают агрегат.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, requesterID uuid.UUID, permanent bool) error {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to get review: %w", err)
	}

	if review.UserID != requesterID {
		return ErrForbidden
	}

	if permanent {
		err = s.reviewRepo.HardDelete(ctx, reviewID)
	} else {
		if !review.IsActive {
			return ErrReviewNotFound
		}
		err = s.reviewRepo.SoftDelete(ctx, reviewID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}

	snapshot, err := s.aggregator.Recompute(ctx, review.BookID)
	if err != nil {
		return err
	}

	s.publishReviewEvent(ctx, "REVIEW_DELETED", review, snapshot)

	return nil
}

// publishReviewEvent отправляет событие об отзыве в Kafka
// Отзыв и агрегат уже записаны, проблемы с Kafka не критичны
func (s *ReviewService) publishReviewEvent(ctx context.Context, eventType string, review *entity.Review, snapshot *entity.RatingSnapshot) {
	event := entity.ReviewEvent{
		EventType:     eventType,
		ReviewID:      review.ID,
		BookID:        review.BookID,
		UserID:        review.UserID,
		Rating:        review.Rating,
		AverageRating: snapshot.AverageRating,
		TotalReviews:  snapshot.TotalReviews,
		Timestamp:     time.Now(),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to marshal review event")
		return
	}

	// Ключ = ReviewID для партиционирования
	if err := s.kafkaProducer.PublishMessage(ctx, event.ReviewID.String(), eventData); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish review event")
	}
}
