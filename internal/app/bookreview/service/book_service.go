package service

import (
	"context"
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

const bookCacheTTL = 10 * time.Minute

// BookService обрабатывает бизнес-логику каталога книг
// Координирует работу репозиториев и Redis кеша
type BookService struct {
	bookRepo   repository.BookRepository
	reviewRepo repository.ReviewRepository
	bookCache  util.BookCache
}

// NewBookService создает новый сервис книг с внедрением зависимостей
func NewBookService(
	bookRepo repository.BookRepository,
	reviewRepo repository.ReviewRepository,
	bookCache util.BookCache,
) *BookService {
	return &BookService{
		bookRepo:   bookRepo,
		reviewRepo: reviewRepo,
		bookCache:  bookCache,
	}
}

// CreateBook добавляет новую книгу
// Новая книга начинает с нулевым агрегатом: отзывов ещё нет
func (s *BookService) CreateBook(ctx context.Context, userID uuid.UUID, req *entity.CreateBookRequest) (*entity.Book, error) {
	language := req.Language
	if language == "" {
		language = "English"
	}

	now := time.Now()
	book := &entity.Book{
		ID:            uuid.New(),
		Title:         req.Title,
		Author:        req.Author,
		Genre:         req.Genre,
		Description:   req.Description,
		PublishYear:   req.PublishYear,
		Pages:         req.Pages,
		Language:      language,
		AddedBy:       userID,
		AverageRating: 0,
		TotalReviews:  0,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	metrics.BooksCreated.Inc()

	return book, nil
}

// GetBook получает активную книгу по ID вместе с её отзывами.
// Карточка книги читается через Redis кеш; агрегатные поля отдаются
// как записаны - пересчёта при чтении нет, свежесть гарантирует
// пересчёт на записи.
func (s *BookService) GetBook(ctx context.Context, id uuid.UUID, page, limit int) (*entity.BookDetailResponse, error) {
	book, err := s.getBookCached(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, total, err := s.reviewRepo.GetActiveByBook(ctx, id, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	return &entity.BookDetailResponse{
		Book:       *book,
		Reviews:    reviews,
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

// ListBooks получает активные книги с фильтрами и пагинацией
func (s *BookService) ListBooks(ctx context.Context, q *entity.ListBooksQuery) (*entity.BookListResponse, error) {
	q.Normalize()

	books, total, err := s.bookRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return &entity.BookListResponse{
		Books:      books,
		Pagination: entity.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// SearchBooks ищет книги по названию, автору и описанию
func (s *BookService) SearchBooks(ctx context.Context, query string, page, limit int) (*entity.BookListResponse, error) {
	books, total, err := s.bookRepo.Search(ctx, query, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	return &entity.BookListResponse{
		Books:      books,
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

// UpdateBook обновляет описательные поля книги
// Обновлять книгу может только добавивший её пользователь
func (s *BookService) UpdateBook(ctx context.Context, id, requesterID uuid.UUID, req *entity.UpdateBookRequest) (*entity.Book, error) {
	book, err := s.bookRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if book.AddedBy != requesterID {
		return nil, ErrForbidden
	}

	// Обновляем только переданные поля
	if req.Title != "" {
		book.Title = req.Title
	}
	if req.Author != "" {
		book.Author = req.Author
	}
	if req.Genre != "" {
		book.Genre = req.Genre
	}
	if req.Description != "" {
		book.Description = req.Description
	}
	if req.PublishYear > 0 {
		book.PublishYear = req.PublishYear
	}
	if req.Pages > 0 {
		book.Pages = req.Pages
	}
	if req.Language != "" {
		book.Language = req.Language
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	s.invalidateBookCache(ctx, id)

	return book, nil
}

// DeleteBook мягко удаляет книгу
// Удалять книгу может только добавивший её пользователь
func (s *BookService) DeleteBook(ctx context.Context, id, requesterID uuid.UUID) error {
	book, err := s.bookRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to get book: %w", err)
	}

	if book.AddedBy != requesterID {
		return ErrForbidden
	}

	if err := s.bookRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	s.invalidateBookCache(ctx, id)

	return nil
}

// getBookCached читает карточку книги через кеш
// Cache miss загружает книгу из БД и кеширует на bookCacheTTL
func (s *BookService) getBookCached(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	book, err := s.bookCache.GetBook(ctx, id)
	if err == nil && book != nil && book.IsActive {
		return book, nil
	}

	book, err = s.bookRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if err := s.bookCache.SetBook(ctx, book, bookCacheTTL); err != nil {
		// Данные получены из БД, проблемы с кешем не критичны
		logger.Warn().Err(err).Str("book_id", id.String()).Msg("Failed to cache book")
	}

	return book, nil
}

func (s *BookService) invalidateBookCache(ctx context.Context, id uuid.UUID) {
	if err := s.bookCache.DeleteBook(ctx, id); err != nil {
		logger.Warn().Err(err).Str("book_id", id.String()).Msg("Failed to invalidate book cache")
	}
}
