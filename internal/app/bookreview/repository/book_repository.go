package repository

import (
	"context"
	"errors"

	"bookreview/internal/app/bookreview/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrBookNotFound = errors.New("book not found")
)

// Поля, по которым разрешена сортировка списка книг
var bookSortFields = map[string]string{
	"title":          "title",
	"author":         "author",
	"genre":          "genre",
	"publish_year":   "publish_year",
	"average_rating": "average_rating",
	"created_at":     "created_at",
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository создает новый репозиторий книг
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// Create создает новую книгу
func (r *bookRepository) Create(ctx context.Context, book *entity.Book) error {
	result := r.db.WithContext(ctx).Create(book)
	return result.Error
}

// GetByID получает книгу по ID независимо от флага is_active
// Используется агрегатором и внутренними проверками
func (r *bookRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	var book entity.Book
	result := r.db.WithContext(ctx).First(&book, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, result.Error
	}

	return &book, nil
}

// GetActiveByID получает активную книгу по ID
// Используется публичным read path
func (r *bookRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	var book entity.Book
	result := r.db.WithContext(ctx).First(&book, "id = ? AND is_active = ?", id, true)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, result.Error
	}

	return &book, nil
}

// List получает активные книги с фильтрами, сортировкой и пагинацией
func (r *bookRepository) List(ctx context.Context, q *entity.ListBooksQuery) ([]entity.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Book{}).Where("is_active = ?", true)

	if q.Author != "" {
		query = query.Where("author ILIKE ?", "%"+q.Author+"%")
	}
	if q.Genre != "" {
		query = query.Where("genre ILIKE ?", "%"+q.Genre+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	if col, ok := bookSortFields[q.SortBy]; ok {
		direction := "DESC"
		if q.SortOrder == "asc" {
			direction = "ASC"
		}
		order = col + " " + direction
	}

	var books []entity.Book
	result := query.Session(&gorm.Session{}).
		Order(order).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&books)

	if result.Error != nil {
		return nil, 0, result.Error
	}

	return books, total, nil
}

// Search ищет активные книги по названию, автору и описанию
// Результат отсортирован по рейтингу, затем по дате добавления
func (r *bookRepository) Search(ctx context.Context, query string, page, limit int) ([]entity.Book, int64, error) {
	pattern := "%" + query + "%"
	base := r.db.WithContext(ctx).Model(&entity.Book{}).
		Where("is_active = ?", true).
		Where("title ILIKE ? OR author ILIKE ? OR description ILIKE ?", pattern, pattern, pattern)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []entity.Book
	result := base.Session(&gorm.Session{}).
		Order("average_rating DESC, created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&books)

	if result.Error != nil {
		return nil, 0, result.Error
	}

	return books, total, nil
}

// ListActiveIDs возвращает ID всех активных книг
// Используется фоновой сверкой агрегатов
func (r *bookRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := r.db.WithContext(ctx).Model(&entity.Book{}).
		Where("is_active = ?", true).
		Pluck("id", &ids)

	if result.Error != nil {
		return nil, result.Error
	}

	return ids, nil
}

// Update обновляет описательные поля книги
// Агрегатные поля намеренно не входят в список - их пишет только Recompute
func (r *bookRepository) Update(ctx context.Context, book *entity.Book) error {
	result := r.db.WithContext(ctx).Model(book).Where("id = ?", book.ID).Updates(map[string]interface{}{
		"title":        book.Title,
		"author":       book.Author,
		"genre":        book.Genre,
		"description":  book.Description,
		"publish_year": book.PublishYear,
		"pages":        book.Pages,
		"language":     book.Language,
	})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	return nil
}

// SoftDelete помечает книгу неактивной
func (r *bookRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&entity.Book{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	return nil
}
