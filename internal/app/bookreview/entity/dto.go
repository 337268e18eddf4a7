package entity

// RegisterRequest - запрос на регистрацию
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
}

// LoginRequest - запрос на вход
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest - запрос на обновление токена
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair содержит access и refresh токены
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // время жизни access token в секундах
}

// AuthResponse - ответ с пользователем и токенами
type AuthResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// CreateBookRequest - запрос на добавление книги
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Author      string `json:"author" validate:"required,max=100"`
	Genre       string `json:"genre" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=2000"`
	PublishYear int    `json:"publish_year" validate:"required,min=1000"`
	Pages       int    `json:"pages" validate:"omitempty,min=1"`
	Language    string `json:"language" validate:"omitempty,max=30"`
}

// UpdateBookRequest - запрос на обновление книги (частичное)
type UpdateBookRequest struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Author      string `json:"author" validate:"omitempty,max=100"`
	Genre       string `json:"genre" validate:"omitempty,max=50"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	PublishYear int    `json:"publish_year" validate:"omitempty,min=1000"`
	Pages       int    `json:"pages" validate:"omitempty,min=1"`
	Language    string `json:"language" validate:"omitempty,max=30"`
}

// CreateReviewRequest - запрос на создание отзыва
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=10,max=1000"`
}

// UpdateReviewRequest - запрос на обновление отзыва
// Нулевые значения означают "поле не менять"
type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,min=10,max=1000"`
}

// ListBooksQuery - параметры списка книг
type ListBooksQuery struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Author    string `form:"author"`
	Genre     string `form:"genre"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// Normalize приводит page/limit к безопасным значениям
// Запрос без параметров даёт нулевые значения после binding
func (q *ListBooksQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
}

// Pagination - метаданные постраничного вывода
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	HasNextPage bool  `json:"has_next_page"`
	HasPrevPage bool  `json:"has_prev_page"`
}

// BookListResponse - ответ со списком книг
type BookListResponse struct {
	Books      []Book     `json:"books"`
	Pagination Pagination `json:"pagination"`
}

// BookDetailResponse - книга вместе с её отзывами
type BookDetailResponse struct {
	Book       Book       `json:"book"`
	Reviews    []Review   `json:"reviews"`
	Pagination Pagination `json:"reviews_pagination"`
}

// BookReviewsResponse - отзывы книги с распределением оценок
type BookReviewsResponse struct {
	Book               Book           `json:"book"`
	Reviews            []Review       `json:"reviews"`
	RatingDistribution []RatingBucket `json:"rating_distribution"`
	Pagination         Pagination     `json:"pagination"`
}

// ReviewListResponse - ответ со списком отзывов
type ReviewListResponse struct {
	Reviews    []Review   `json:"reviews"`
	Pagination Pagination `json:"pagination"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewPagination заполняет метаданные страницы
func NewPagination(page, limit int, total int64) Pagination {
	if limit < 1 {
		limit = 1
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
