package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookreview/internal/app/bookreview/entity"
	"bookreview/internal/app/bookreview/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) CreateBook(ctx context.Context, userID uuid.UUID, req *entity.CreateBookRequest) (*entity.Book, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Book), args.Error(1)
}

func (m *MockBookService) GetBook(ctx context.Context, id uuid.UUID, page, limit int) (*entity.BookDetailResponse, error) {
	args := m.Called(ctx, id, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BookDetailResponse), args.Error(1)
}

func (m *MockBookService) ListBooks(ctx context.Context, q *entity.ListBooksQuery) (*entity.BookListResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BookListResponse), args.Error(1)
}

func (m *MockBookService) SearchBooks(ctx context.Context, query string, page, limit int) (*entity.BookListResponse, error) {
	args := m.Called(ctx, query, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BookListResponse), args.Error(1)
}

func (m *MockBookService) UpdateBook(ctx context.Context, id, requesterID uuid.UUID, req *entity.UpdateBookRequest) (*entity.Book, error) {
	args := m.Called(ctx, id, requesterID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Book), args.Error(1)
}

func (m *MockBookService) DeleteBook(ctx context.Context, id, requesterID uuid.UUID) error {
	args := m.Called(ctx, id, requesterID)
	return args.Error(0)
}

func validCreateBookRequest() entity.CreateBookRequest {
	return entity.CreateBookRequest{
		Title:       "War and Peace",
		Author:      "Leo Tolstoy",
		Genre:       "Classic",
		Description: "An epic novel about Russian society during the Napoleonic era",
		PublishYear: 1869,
		Pages:       1225,
	}
}

// ==================== CreateBook Handler Tests ====================

func TestBookHandler_CreateBook_Success(t *testing.T) {
	// Arrange
	userID := uuid.New()

	book := &entity.Book{
		ID:      uuid.New(),
		Title:   "War and Peace",
		Author:  "Leo Tolstoy",
		AddedBy: userID,
	}

	mockService := new(MockBookService)
	mockService.On("CreateBook", mock.Anything, userID, mock.AnythingOfType("*entity.CreateBookRequest")).Return(book, nil)

	handler := NewBookHandler(mockService)
	router := authedRouter(http.MethodPost, "/api/books", userID, handler.CreateBook)

	body, _ := json.Marshal(validCreateBookRequest())
	req := httptest.NewRequest(http.MethodPost, "/api/books", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusCreated, rec.Code)

	var response entity.Book
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, book.ID, response.ID)
	assert.Equal(t, "War and Peace", response.Title)
}

func TestBookHandler_CreateBook_Unauthorized(t *testing.T) {
	// Arrange
	mockService := new(MockBookService)
	handler := NewBookHandler(mockService)

	router := gin.New()
	router.POST("/api/books", handler.CreateBook)

	body, _ := json.Marshal(validCreateBookRequest())
	req := httptest.NewRequest(http.MethodPost, "/api/books", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	mockService.AssertNotCalled(t, "CreateBook")
}

func TestBookHandler_CreateBook_ValidationError(t *testing.T) {
	// Arrange - пустой автор
	mockService := new(MockBookService)
	handler := NewBookHandler(mockService)
	router := authedRouter(http.MethodPost, "/api/books", uuid.New(), handler.CreateBook)

	reqBody := validCreateBookRequest()
	reqBody.Author = ""
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/books", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var response map[string]string
	json.Unmarshal(rec.Body.Bytes(), &response)
	assert.Contains(t, response["message"], "Author is required")
}

// ==================== GetBook Handler Tests ====================

func TestBookHandler_GetBook_Success(t *testing.T) {
	// Arrange
	bookID := uuid.New()

	detail := &entity.BookDetailResponse{
		Book: entity.Book{ID: bookID, Title: "Anna Karenina", AverageRating: 4.2, TotalReviews: 5},
		Reviews: []entity.Review{
			{ID: uuid.New(), BookID: bookID, Rating: 4},
		},
		Pagination: entity.NewPagination(1, 10, 1),
	}

	mockService := new(MockBookService)
	mockService.On("GetBook", mock.Anything, bookID, 1, 10).Return(detail, nil)

	handler := NewBookHandler(mockService)
	router := gin.New()
	router.GET("/api/books/:book_id", handler.GetBook)

	req := httptest.NewRequest(http.MethodGet, "/api/books/"+bookID.String(), nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)

	var response entity.BookDetailResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, bookID, response.Book.ID)
	assert.Equal(t, 4.2, response.Book.AverageRating)
}

func TestBookHandler_GetBook_InvalidID(t *testing.T) {
	// Arrange
	mockService := new(MockBookService)
	handler := NewBookHandler(mockService)

	router := gin.New()
	router.GET("/api/books/:book_id", handler.GetBook)

	req := httptest.NewRequest(http.MethodGet, "/api/books/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertNotCalled(t, "GetBook")
}

func TestBookHandler_GetBook_NotFound(t *testing.T) {
	// Arrange
	bookID := uuid.New()

	mockService := new(MockBookService)
	mockService.On("GetBook", mock.Anything, bookID, 1, 10).Return(nil, service.ErrBookNotFound)

	handler := NewBookHandler(mockService)
	router := gin.New()
	router.GET("/api/books/:book_id", handler.GetBook)

	req := httptest.NewRequest(http.MethodGet, "/api/books/"+bookID.String(), nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==================== ListBooks Handler Tests ====================

func TestBookHandler_ListBooks_Success(t *testing.T) {
	// Arrange
	resp := &entity.BookListResponse{
		Books: []entity.Book{
			{ID: uuid.New(), Title: "The Idiot"},
			{ID: uuid.New(), Title: "Demons"},
		},
		Pagination: entity.NewPagination(1, 10, 2),
	}

	mockService := new(MockBookService)
	mockService.On("ListBooks", mock.Anything, mock.AnythingOfType("*entity.ListBooksQuery")).Return(resp, nil)

	handler := NewBookHandler(mockService)
	router := gin.New()
	router.GET("/api/books", handler.ListBooks)

	req := httptest.NewRequest(http.MethodGet, "/api/books?author=Dostoevsky&sort_by=rating", nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)

	var response entity.BookListResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Len(t, response.Books, 2)

	// Параметры фильтра должны дойти до сервиса
	q := mockService.Calls[0].Arguments.Get(1).(*entity.ListBooksQuery)
	assert.Equal(t, "Dostoevsky", q.Author)
	assert.Equal(t, "rating", q.SortBy)
}

// ==================== SearchBooks Handler Tests ====================

func TestBookHandler_SearchBooks_Success(t *testing.T) {
	// Arrange
	resp := &entity.BookListResponse{
		Books:      []entity.Book{{ID: uuid.New(), Title: "The Master and Margarita"}},
		Pagination: entity.NewPagination(1, 10, 1),
	}

	mockService := new(MockBookService)
	mockService.On("SearchBooks", mock.Anything, "margarita", 1, 10).Return(resp, nil)

	handler := NewBookHandler(mockService)
	router := gin.New()
	router.GET("/api/books/search", handler.SearchBooks)

	req := httptest.NewRequest(http.MethodGet, "/api/books/search?q=margarita", nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)

	var response entity.BookListResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Len(t, response.Books, 1)
}

func TestBookHandler_SearchBooks_MissingQuery(t *testing.T) {
	// Arrange
	mockService := new(MockBookService)
	handler := NewBookHandler(mockService)

	router := gin.New()
	router.GET("/api/books/search", handler.SearchBooks)

	req := httptest.NewRequest(http.MethodGet, "/api/books/search", nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertNotCalled(t, "SearchBooks")
}

// ==================== UpdateBook Handler Tests ====================

func TestBookHandler_UpdateBook_Success(t *testing.T) {
	// Arrange
	userID := uuid.New()
	bookID := uuid.New()

	updated := &entity.Book{ID: bookID, Title: "War and Peace (Revised)", AddedBy: userID}

	mockService := new(MockBookService)
	mockService.On("UpdateBook", mock.Anything, bookID, userID, mock.AnythingOfType("*entity.UpdateBookRequest")).Return(updated, nil)

	handler := NewBookHandler(mockService)
	router := authedRouter(http.MethodPut, "/api/books/:book_id", userID, handler.UpdateBook)

	body, _ := json.Marshal(entity.UpdateBookRequest{Title: "War and Peace (Revised)"})
	req := httptest.NewRequest(http.MethodPut, "/api/books/"+bookID.String(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)

	var response entity.Book
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "War and Peace (Revised)", response.Title)
}

func TestBookHandler_UpdateBook_Forbidden(t *testing.T) {
	// Arrange
	userID := uuid.New()
	bookID := uuid.New()

	mockService := new(MockBookService)
	mockService.On("UpdateBook", mock.Anything, bookID, userID, mock.Anything).Return(nil, service.ErrForbidden)

	handler := NewBookHandler(mockService)
	router := authedRouter(http.MethodPut, "/api/books/:book_id", userID, handler.UpdateBook)

	body, _ := json.Marshal(entity.UpdateBookRequest{Title: "Hijacked Title"})
	req := httptest.NewRequest(http.MethodPut, "/api/books/"+bookID.String(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookHandler_UpdateBook_NotFound(t *testing.T) {
	// Arrange
	userID := uuid.New()
	bookID := uuid.New()

	mockService := new(MockBookService)
	mockService.On("UpdateBook", mock.Anything, bookID, userID, mock.Anything).Return(nil, service.ErrBookNotFound)

	handler := NewBookHandler(mockService)
	router := authedRouter(http.MethodPut, "/api/books/:book_id", userID, handler.UpdateBook)

	body, _ := json.Marshal(entity.UpdateBookRequest{Title: "Updated"})
	req := httptest.NewRequest(http.MethodPut, "/api/books/"+bookID.String(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==================== DeleteBook Handler Tests ====================

func TestBookHandler_DeleteBook_Success(t *testing.T) {
	// Arrange
	userID := uuid.New()
	bookID := uuid.New()

	mockService := new(MockBookService)
	mockService.On("DeleteBook", mock.Anything, bookID, userID).Return(nil)

	handler := NewBookHandler(mockService)
	router := authedRouter(http.MethodDelete, "/api/books/:book_id", userID, handler.DeleteBook)

	req := httptest.NewRequest(http.MethodDelete, "/api/books/"+bookID.String(), nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	mockService.AssertCalled(t, "DeleteBook", mock.Anything, bookID, userID)
}

func TestBookHandler_DeleteBook_Forbidden(t *testing.T) {
	// Arrange
	userID := uuid.New()
	bookID := uuid.New()

	mockService := new(MockBookService)
	mockService.On("DeleteBook", mock.Anything, bookID, userID).Return(service.ErrForbidden)

	handler := NewBookHandler(mockService)
	router := authedRouter(http.MethodDelete, "/api/books/:book_id", userID, handler.DeleteBook)

	req := httptest.NewRequest(http.MethodDelete, "/api/books/"+bookID.String(), nil)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
