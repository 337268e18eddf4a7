package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bookreview/internal/app/bookreview/entity"
	"bookreview/internal/app/bookreview/repository"
	"bookreview/internal/app/bookreview/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newReviewServiceForTest() (*ReviewService, *mocks.MockReviewRepository, *mocks.MockBookRepository, *mocks.MockAggregateRepository, *mocks.MockMessagePublisher) {
	reviewRepo := new(mocks.MockReviewRepository)
	bookRepo := new(mocks.MockBookRepository)
	aggregator := new(mocks.MockAggregateRepository)
	kafkaProducer := &mocks.MockMessagePublisher{Messages: make([][]byte, 0)}
	svc := NewReviewService(reviewRepo, bookRepo, aggregator, kafkaProducer)
	return svc, reviewRepo, bookRepo, aggregator, kafkaProducer
}

func activeBook(id uuid.UUID) *entity.Book {
	return &entity.Book{
		ID:       id,
		Title:    "The Go Programming Language",
		Author:   "Donovan, Kernighan",
		IsActive: true,
	}
}

func TestCreateReview_Success(t *testing.T) {
	svc, reviewRepo, bookRepo, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()
	req := &entity.CreateReviewRequest{Rating: 4, Comment: "Solid read, well structured."}

	bookRepo.On("GetActiveByID", ctx, bookID).Return(activeBook(bookID), nil)
	reviewRepo.On("GetActiveByBookAndUser", ctx, bookID, userID).Return(nil, repository.ErrReviewNotFound)
	reviewRepo.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(&entity.RatingSnapshot{BookID: bookID, AverageRating: 4.0, TotalReviews: 1}, nil)
	kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	result, err := svc.CreateReview(ctx, bookID, userID, req)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, bookID, result.BookID)
	assert.Equal(t, userID, result.UserID)
	assert.Equal(t, 4, result.Rating)
	assert.True(t, result.IsActive)
	aggregator.AssertCalled(t, "Recompute", ctx, bookID)
}

func TestCreateReview_PublishesAggregateInEvent(t *testing.T) {
	svc, reviewRepo, bookRepo, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()
	req := &entity.CreateReviewRequest{Rating: 5, Comment: "Best technical book I own."}

	bookRepo.On("GetActiveByID", ctx, bookID).Return(activeBook(bookID), nil)
	reviewRepo.On("GetActiveByBookAndUser", ctx, bookID, userID).Return(nil, repository.ErrReviewNotFound)
	reviewRepo.On("Create", ctx, mock.Anything).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(&entity.RatingSnapshot{BookID: bookID, AverageRating: 4.5, TotalReviews: 2}, nil)
	kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.CreateReview(ctx, bookID, userID, req)

	assert.NoError(t, err)
	assert.Len(t, kafkaProducer.Messages, 1)

	var event entity.ReviewEvent
	assert.NoError(t, json.Unmarshal(kafkaProducer.Messages[0], &event))
	assert.Equal(t, "REVIEW_CREATED", event.EventType)
	assert.Equal(t, 4.5, event.AverageRating)
	assert.Equal(t, int64(2), event.TotalReviews)
}

func TestCreateReview_BookNotFound(t *testing.T) {
	svc, _, bookRepo, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()

	bookRepo.On("GetActiveByID", ctx, bookID).Return(nil, repository.ErrBookNotFound)

	result, err := svc.CreateReview(ctx, bookID, uuid.New(), &entity.CreateReviewRequest{Rating: 3, Comment: "Average, nothing special."})

	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Nil(t, result)
}

func TestCreateReview_Duplicate(t *testing.T) {
	svc, reviewRepo, bookRepo, aggregator, _ := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()

	bookRepo.On("GetActiveByID", ctx, bookID).Return(activeBook(bookID), nil)
	reviewRepo.On("GetActiveByBookAndUser", ctx, bookID, userID).Return(&entity.Review{ID: uuid.New(), BookID: bookID, UserID: userID, IsActive: true}, nil)

	result, err := svc.CreateReview(ctx, bookID, userID, &entity.CreateReviewRequest{Rating: 5, Comment: "Trying to review twice."})

	assert.ErrorIs(t, err, ErrDuplicateReview)
	assert.Nil(t, result)
	aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestCreateReview_DuplicateInsertRace(t *testing.T) {
	svc, reviewRepo, bookRepo, aggregator, _ := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()

	// Параллельная вставка успела между проверкой и Create:
	// уникальный индекс БД отбивает вторую строку
	bookRepo.On("GetActiveByID", ctx, bookID).Return(activeBook(bookID), nil)
	reviewRepo.On("GetActiveByBookAndUser", ctx, bookID, userID).Return(nil, repository.ErrReviewNotFound)
	reviewRepo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicateReview)

	result, err := svc.CreateReview(ctx, bookID, userID, &entity.CreateReviewRequest{Rating: 5, Comment: "Racing my other tab to the button."})

	assert.ErrorIs(t, err, ErrDuplicateReview)
	assert.Nil(t, result)
	aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestCreateReview_RecomputeFailureFailsOperation(t *testing.T) {
	svc, reviewRepo, bookRepo, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()

	bookRepo.On("GetActiveByID", ctx, bookID).Return(activeBook(bookID), nil)
	reviewRepo.On("GetActiveByBookAndUser", ctx, bookID, userID).Return(nil, repository.ErrReviewNotFound)
	reviewRepo.On("Create", ctx, mock.Anything).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(nil, errors.New("db down"))

	result, err := svc.CreateReview(ctx, bookID, userID, &entity.CreateReviewRequest{Rating: 2, Comment: "Did not enjoy this one."})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, kafkaProducer.Messages)
}

func TestCreateReview_KafkaErrorIgnored(t *testing.T) {
	svc, reviewRepo, bookRepo, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()

	bookRepo.On("GetActiveByID", ctx, bookID).Return(activeBook(bookID), nil)
	reviewRepo.On("GetActiveByBookAndUser", ctx, bookID, userID).Return(nil, repository.ErrReviewNotFound)
	reviewRepo.On("Create", ctx, mock.Anything).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(&entity.RatingSnapshot{BookID: bookID, AverageRating: 3.0, TotalReviews: 1}, nil)
	kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(errors.New("kafka error"))

	result, err := svc.CreateReview(ctx, bookID, userID, &entity.CreateReviewRequest{Rating: 3, Comment: "Average, nothing special."})

	assert.NoError(t, err)
	assert.NotNil(t, result)
}

func TestGetReview_InactiveHidden(t *testing.T) {
	svc, reviewRepo, _, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	reviewID := uuid.New()

	reviewRepo.On("GetByID", ctx, reviewID).Return(&entity.Review{ID: reviewID, IsActive: false}, nil)

	result, err := svc.GetReview(ctx, reviewID)

	assert.ErrorIs(t, err, ErrReviewNotFound)
	assert.Nil(t, result)
}

func TestGetBookReviews_Success(t *testing.T) {
	svc, reviewRepo, bookRepo, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	reviews := []entity.Review{
		{ID: uuid.New(), BookID: bookID, Rating: 5, IsActive: true},
		{ID: uuid.New(), BookID: bookID, Rating: 4, IsActive: true},
	}
	distribution := []entity.RatingBucket{{Rating: 5, Count: 1}, {Rating: 4, Count: 1}}

	bookRepo.On("GetActiveByID", ctx, bookID).Return(activeBook(bookID), nil)
	reviewRepo.On("GetActiveByBook", ctx, bookID, 1, 10).Return(reviews, int64(2), nil)
	reviewRepo.On("RatingDistribution", ctx, bookID).Return(distribution, nil)

	result, err := svc.GetBookReviews(ctx, bookID, 1, 10)

	assert.NoError(t, err)
	assert.Len(t, result.Reviews, 2)
	assert.Len(t, result.RatingDistribution, 2)
	assert.Equal(t, int64(2), result.Pagination.TotalItems)
}

func TestUpdateReview_Success(t *testing.T) {
	svc, reviewRepo, _, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: bookID, UserID: userID, Rating: 4, Comment: "Solid read, well structured.", IsActive: true}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)
	reviewRepo.On("Update", ctx, mock.AnythingOfType("*entity.Review")).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(&entity.RatingSnapshot{BookID: bookID, AverageRating: 3.5, TotalReviews: 2}, nil)
	kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	result, err := svc.UpdateReview(ctx, reviewID, userID, &entity.UpdateReviewRequest{Rating: 5})

	assert.NoError(t, err)
	assert.Equal(t, 5, result.Rating)
	assert.Equal(t, "Solid read, well structured.", result.Comment)
	aggregator.AssertCalled(t, "Recompute", ctx, bookID)
}

func TestUpdateReview_Forbidden(t *testing.T) {
	svc, reviewRepo, _, aggregator, _ := newReviewServiceForTest()

	ctx := context.Background()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: uuid.New(), UserID: uuid.New(), Rating: 4, IsActive: true}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)

	result, err := svc.UpdateReview(ctx, reviewID, uuid.New(), &entity.UpdateReviewRequest{Rating: 1})

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, result)
	aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestUpdateReview_RecomputeFailureFailsOperation(t *testing.T) {
	svc, reviewRepo, _, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: bookID, UserID: userID, Rating: 4, IsActive: true}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)
	reviewRepo.On("Update", ctx, mock.Anything).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(nil, errors.New("deadlock"))

	result, err := svc.UpdateReview(ctx, reviewID, userID, &entity.UpdateReviewRequest{Rating: 5})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, kafkaProducer.Messages)
}

func TestDeleteReview_SoftByDefault(t *testing.T) {
	svc, reviewRepo, _, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: bookID, UserID: userID, Rating: 2, IsActive: true}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)
	reviewRepo.On("SoftDelete", ctx, reviewID).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(&entity.RatingSnapshot{BookID: bookID, AverageRating: 5.0, TotalReviews: 1}, nil)
	kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.DeleteReview(ctx, reviewID, userID, false)

	assert.NoError(t, err)
	reviewRepo.AssertCalled(t, "SoftDelete", ctx, reviewID)
	reviewRepo.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
	aggregator.AssertCalled(t, "Recompute", ctx, bookID)
}

func TestDeleteReview_Permanent(t *testing.T) {
	svc, reviewRepo, _, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: bookID, UserID: userID, Rating: 1, IsActive: true}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)
	reviewRepo.On("HardDelete", ctx, reviewID).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(&entity.RatingSnapshot{BookID: bookID, AverageRating: 0, TotalReviews: 0}, nil)
	kafkaProducer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.DeleteReview(ctx, reviewID, userID, true)

	assert.NoError(t, err)
	reviewRepo.AssertCalled(t, "HardDelete", ctx, reviewID)
	reviewRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	aggregator.AssertCalled(t, "Recompute", ctx, bookID)
}

func TestDeleteReview_Forbidden(t *testing.T) {
	svc, reviewRepo, _, aggregator, _ := newReviewServiceForTest()

	ctx := context.Background()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: uuid.New(), UserID: uuid.New(), IsActive: true}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)

	err := svc.DeleteReview(ctx, reviewID, uuid.New(), false)

	assert.ErrorIs(t, err, ErrForbidden)
	aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestDeleteReview_AlreadySoftDeleted(t *testing.T) {
	svc, reviewRepo, _, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: uuid.New(), UserID: userID, IsActive: false}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)

	err := svc.DeleteReview(ctx, reviewID, userID, false)

	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestDeleteReview_RecomputeFailureFailsOperation(t *testing.T) {
	svc, reviewRepo, _, aggregator, kafkaProducer := newReviewServiceForTest()

	ctx := context.Background()
	bookID := uuid.New()
	userID := uuid.New()
	reviewID := uuid.New()
	stored := &entity.Review{ID: reviewID, BookID: bookID, UserID: userID, IsActive: true}

	reviewRepo.On("GetByID", ctx, reviewID).Return(stored, nil)
	reviewRepo.On("SoftDelete", ctx, reviewID).Return(nil)
	aggregator.On("Recompute", ctx, bookID).Return(nil, errors.New("connection reset"))

	err := svc.DeleteReview(ctx, reviewID, userID, false)

	assert.Error(t, err)
	assert.Empty(t, kafkaProducer.Messages)
}

func TestGetUserReviews_Success(t *testing.T) {
	svc, reviewRepo, _, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	reviews := []entity.Review{
		{ID: uuid.New(), UserID: userID, Rating: 5, IsActive: true, CreatedAt: time.Now()},
	}

	reviewRepo.On("GetActiveByUser", ctx, userID, 1, 10).Return(reviews, int64(1), nil)

	result, err := svc.GetUserReviews(ctx, userID, 1, 10)

	assert.NoError(t, err)
	assert.Len(t, result.Reviews, 1)
	assert.Equal(t, 1, result.Pagination.CurrentPage)
}
