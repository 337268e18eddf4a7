package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"bookreview/internal/app/bookreview/entity"
	"bookreview/internal/app/bookreview/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type BookServiceInterface interface {
	CreateBook(ctx context.Context, userID uuid.UUID, req *entity.CreateBookRequest) (*entity.Book, error)
	GetBook(ctx context.Context, id uuid.UUID, page, limit int) (*entity.BookDetailResponse, error)
	ListBooks(ctx context.Context, q *entity.ListBooksQuery) (*entity.BookListResponse, error)
	SearchBooks(ctx context.Context, query string, page, limit int) (*entity.BookListResponse, error)
	UpdateBook(ctx context.Context, id, requesterID uuid.UUID, req *entity.UpdateBookRequest) (*entity.Book, error)
	DeleteBook(ctx context.Context, id, requesterID uuid.UUID) error
}

type BookHandler struct {
	bookService BookServiceInterface
	validator   *validator.Validate
}

func NewBookHandler(bookService BookServiceInterface) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		validator:   validator.New(),
	}
}

func (h *BookHandler) CreateBook(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req entity.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": formatValidationError(err),
		})
		return
	}

	book, err := h.bookService.CreateBook(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to create book",
		})
		return
	}

	c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) GetBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid book ID",
		})
		return
	}

	page, limit := parsePagination(c)

	detail, err := h.bookService.GetBook(c.Request.Context(), bookID, page, limit)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Book not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to get book",
		})
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *BookHandler) ListBooks(c *gin.Context) {
	var q entity.ListBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid query parameters",
		})
		return
	}

	resp, err := h.bookService.ListBooks(c.Request.Context(), &q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to list books",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BookHandler) SearchBooks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Search query is required",
		})
		return
	}

	page, limit := parsePagination(c)

	resp, err := h.bookService.SearchBooks(c.Request.Context(), query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to search books",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BookHandler) UpdateBook(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid book ID",
		})
		return
	}

	var req entity.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": formatValidationError(err),
		})
		return
	}

	book, err := h.bookService.UpdateBook(c.Request.Context(), bookID, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Book not found",
			})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Only the user who added the book can modify it",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to update book",
			})
		}
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid book ID",
		})
		return
	}

	if err := h.bookService.DeleteBook(c.Request.Context(), bookID, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Book not found",
			})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Only the user who added the book can delete it",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to delete book",
			})
		}
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Book deleted successfully",
	})
}

// parsePagination читает page/limit из query string с безопасными значениями по умолчанию
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}
