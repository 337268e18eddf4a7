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

type ReviewServiceInterface interface {
	CreateReview(ctx context.Context, bookID, userID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error)
	GetReview(ctx context.Context, reviewID uuid.UUID) (*entity.Review, error)
	GetBookReviews(ctx context.Context, bookID uuid.UUID, page, limit int) (*entity.BookReviewsResponse, error)
	GetUserReviews(ctx context.Context, userID uuid.UUID, page, limit int) (*entity.ReviewListResponse, error)
	UpdateReview(ctx context.Context, reviewID, requesterID uuid.UUID, req *entity.UpdateReviewRequest) (*entity.Review, error)
	DeleteReview(ctx context.Context, reviewID, requesterID uuid.UUID, permanent bool) error
}

type ReviewHandler struct {
	reviewService ReviewServiceInterface
	validator     *validator.Validate
}

func NewReviewHandler(reviewService ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		validator:     validator.New(),
	}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
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

	var req entity.CreateReviewRequest
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

	review, err := h.reviewService.CreateReview(c.Request.Context(), bookID, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Book not found",
			})
		case errors.Is(err, service.ErrDuplicateReview):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "You have already reviewed this book",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to create review",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) GetReview(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("review_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid review ID",
		})
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Review not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to get review",
		})
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) GetBookReviews(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid book ID",
		})
		return
	}

	page, limit := parsePagination(c)

	resp, err := h.reviewService.GetBookReviews(c.Request.Context(), bookID, page, limit)
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
			"message": "Failed to get reviews",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) GetMyReviews(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := parsePagination(c)

	resp, err := h.reviewService.GetUserReviews(c.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to get reviews",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reviewID, err := uuid.Parse(c.Param("review_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid review ID",
		})
		return
	}

	var req entity.UpdateReviewRequest
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

	review, err := h.reviewService.UpdateReview(c.Request.Context(), reviewID, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Review not found",
			})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You can only modify your own reviews",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to update review",
			})
		}
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reviewID, err := uuid.Parse(c.Param("review_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid review ID",
		})
		return
	}

	permanent, _ := strconv.ParseBool(c.DefaultQuery("permanent", "false"))

	if err := h.reviewService.DeleteReview(c.Request.Context(), reviewID, userID, permanent); err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Review not found",
			})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You can only delete your own reviews",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to delete review",
			})
		}
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Review deleted successfully",
	})
}
