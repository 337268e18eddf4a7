package service

import "errors"

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrBookNotFound        = errors.New("book not found")
	ErrReviewNotFound      = errors.New("review not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("access forbidden")
	ErrDuplicateReview     = errors.New("active review for this book already exists")
	ErrUserExists          = errors.New("user with this email or username already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)
