package repository

import (
	"context"

	"bookreview/internal/app/bookreview/entity"

	"github.com/google/uuid"
)

// UserRepository определяет методы для работы с пользователями в PostgreSQL
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

// BookRepository определяет методы для работы с книгами
// Агрегатные поля книги (average_rating, total_reviews) здесь не изменяются -
// их пишет только AggregateRepository.Recompute
type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	List(ctx context.Context, q *entity.ListBooksQuery) ([]entity.Book, int64, error)
	Search(ctx context.Context, query string, page, limit int) ([]entity.Book, int64, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	Update(ctx context.Context, book *entity.Book) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// ReviewRepository определяет методы для работы с отзывами
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	GetActiveByBookAndUser(ctx context.Context, bookID, userID uuid.UUID) (*entity.Review, error)
	GetActiveByBook(ctx context.Context, bookID uuid.UUID, page, limit int) ([]entity.Review, int64, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]entity.Review, int64, error)
	RatingDistribution(ctx context.Context, bookID uuid.UUID) ([]entity.RatingBucket, error)
	Update(ctx context.Context, review *entity.Review) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// AggregateRepository выполняет пересчёт денормализованного агрегата книги.
// Скан активных отзывов и запись результата в книгу происходят в одной
// транзакции, пересчёты одной книги сериализуются блокировкой её строки.
type AggregateRepository interface {
	Recompute(ctx context.Context, bookID uuid.UUID) (*entity.RatingSnapshot, error)
}
