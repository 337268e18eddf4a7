package repository

import (
	"context"
	"errors"
	"math"

	"bookreview/internal/app/bookreview/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type aggregateRepository struct {
	db *gorm.DB
}

// NewAggregateRepository создает репозиторий пересчёта агрегатов
func NewAggregateRepository(db *gorm.DB) AggregateRepository {
	return &aggregateRepository{db: db}
}

// Recompute пересчитывает average_rating и total_reviews книги по её
// активным отзывам и пишет результат в строку книги.
//
// Скан отзывов и запись агрегата выполняются в одной транзакции.
// Строка книги блокируется SELECT ... FOR UPDATE, поэтому конкурентные
// пересчёты одной книги сериализуются, а пересчёты разных книг не
// конкурируют. При любой ошибке транзакция откатывается и прежние
// значения агрегата остаются нетронутыми.
func (r *aggregateRepository) Recompute(ctx context.Context, bookID uuid.UUID) (*entity.RatingSnapshot, error) {
	snapshot := &entity.RatingSnapshot{BookID: bookID}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entity.Book
		q := tx
		// SQLite (интеграционные тесты) не поддерживает FOR UPDATE,
		// там транзакции и так сериализованы
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&book, "id = ?", bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		var stats struct {
			Average float64
			Total   int64
		}
		if err := tx.Model(&entity.Review{}).
			Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
			Where("book_id = ? AND is_active = ?", bookID, true).
			Scan(&stats).Error; err != nil {
			return err
		}

		snapshot.AverageRating = math.Round(stats.Average*10) / 10
		snapshot.TotalReviews = stats.Total

		// Пишем только два агрегатных поля, остальные колонки книги не трогаем
		return tx.Model(&entity.Book{}).
			Where("id = ?", bookID).
			Updates(map[string]interface{}{
				"average_rating": snapshot.AverageRating,
				"total_reviews":  snapshot.TotalReviews,
			}).Error
	})

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}
