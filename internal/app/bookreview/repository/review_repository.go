package repository

import (
	"context"
	"errors"

	"bookreview/internal/app/bookreview/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("duplicate active review")
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create создает новый отзыв
// Уникальный индекс по (book_id, user_id) для активных строк отбивает
// гонку двух параллельных вставок
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	result := r.db.WithContext(ctx).Create(review)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReview
		}
		return result.Error
	}
	return nil
}

// GetByID получает отзыв по ID независимо от флага is_active
func (r *reviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	result := r.db.WithContext(ctx).First(&review, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, result.Error
	}

	return &review, nil
}

// GetActiveByBookAndUser получает активный отзыв пользователя на книгу
// Используется проверкой "один активный отзыв на пару (book, user)"
func (r *reviewRepository) GetActiveByBookAndUser(ctx context.Context, bookID, userID uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	result := r.db.WithContext(ctx).
		First(&review, "book_id = ? AND user_id = ? AND is_active = ?", bookID, userID, true)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, result.Error
	}

	return &review, nil
}

// GetActiveByBook получает активные отзывы книги с пагинацией
func (r *reviewRepository) GetActiveByBook(ctx context.Context, bookID uuid.UUID, page, limit int) ([]entity.Review, int64, error) {
	base := r.db.WithContext(ctx).Model(&entity.Review{}).
		Where("book_id = ? AND is_active = ?", bookID, true)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []entity.Review
	result := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reviews)

	if result.Error != nil {
		return nil, 0, result.Error
	}

	return reviews, total, nil
}

// GetActiveByUser получает активные отзывы пользователя с пагинацией
func (r *reviewRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]entity.Review, int64, error) {
	base := r.db.WithContext(ctx).Model(&entity.Review{}).
		Where("user_id = ? AND is_active = ?", userID, true)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []entity.Review
	result := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reviews)

	if result.Error != nil {
		return nil, 0, result.Error
	}

	return reviews, total, nil
}

// RatingDistribution возвращает количество активных отзывов по каждой оценке
func (r *reviewRepository) RatingDistribution(ctx context.Context, bookID uuid.UUID) ([]entity.RatingBucket, error) {
	var buckets []entity.RatingBucket
	result := r.db.WithContext(ctx).Model(&entity.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("book_id = ? AND is_active = ?", bookID, true).
		Group("rating").
		Order("rating DESC").
		Scan(&buckets)

	if result.Error != nil {
		return nil, result.Error
	}

	return buckets, nil
}

// Update обновляет оценку и текст отзыва
func (r *reviewRepository) Update(ctx context.Context, review *entity.Review) error {
	result := r.db.WithContext(ctx).Model(review).Where("id = ?", review.ID).Updates(map[string]interface{}{
		"rating":  review.Rating,
		"comment": review.Comment,
	})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// SoftDelete помечает отзыв неактивным
// Штатный путь удаления: отзыв выпадает из агрегата, строка сохраняется
func (r *reviewRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&entity.Review{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// HardDelete удаляет строку отзыва
func (r *reviewRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Review{}, "id = ?", id)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}
