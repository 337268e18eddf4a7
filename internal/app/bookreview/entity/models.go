package entity

import (
	"time"

	"github.com/google/uuid"
)

// User представляет пользователя сервиса
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:30"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255"`
	PasswordHash string    `json:"-" gorm:"size:255"` // не возвращаем в JSON
	FirstName    string    `json:"first_name" gorm:"size:50"`
	LastName     string    `json:"last_name" gorm:"size:50"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Book представляет книгу в каталоге
// AverageRating и TotalReviews - денормализованные поля,
// их пишет только агрегатор (см. service.RatingAggregator)
type Book struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title         string    `json:"title" gorm:"size:200;index"`
	Author        string    `json:"author" gorm:"size:100;index"`
	Genre         string    `json:"genre" gorm:"size:50;index"`
	Description   string    `json:"description" gorm:"size:2000"`
	PublishYear   int       `json:"publish_year"`
	Pages         int       `json:"pages,omitempty"`
	Language      string    `json:"language" gorm:"size:30;default:English"`
	AddedBy       uuid.UUID `json:"added_by" gorm:"type:uuid;index"`
	AverageRating float64   `json:"average_rating" gorm:"default:0"` // от 0 до 5, округлено до 1 знака
	TotalReviews  int64     `json:"total_reviews" gorm:"default:0"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Review представляет отзыв пользователя на книгу
// Инвариант: не более одного активного отзыва на пару (book, user).
// Частичный уникальный индекс страхует его на уровне БД: мягко
// удалённые строки под индекс не попадают и освобождают слот
type Review struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	BookID    uuid.UUID `json:"book_id" gorm:"type:uuid;index:idx_reviews_book_user;uniqueIndex:uq_reviews_active_book_user,where:is_active"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index:idx_reviews_book_user;uniqueIndex:uq_reviews_active_book_user,where:is_active"`
	Rating    int       `json:"rating"` // Оценка от 1 до 5
	Comment   string    `json:"comment" gorm:"size:1000"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingSnapshot - результат пересчёта агрегата книги
type RatingSnapshot struct {
	BookID        uuid.UUID `json:"book_id"`
	AverageRating float64   `json:"average_rating"`
	TotalReviews  int64     `json:"total_reviews"`
}

// RatingBucket - количество отзывов с конкретной оценкой
type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// ReviewEvent представляет событие жизненного цикла отзыва для Kafka
type ReviewEvent struct {
	EventType     string    `json:"event_type"` // REVIEW_CREATED, REVIEW_UPDATED, REVIEW_DELETED
	ReviewID      uuid.UUID `json:"review_id"`
	BookID        uuid.UUID `json:"book_id"`
	UserID        uuid.UUID `json:"user_id"`
	Rating        int       `json:"rating"`
	AverageRating float64   `json:"average_rating"` // агрегат книги после пересчёта
	TotalReviews  int64     `json:"total_reviews"`
	Timestamp     time.Time `json:"timestamp"`
}
