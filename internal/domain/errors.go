package domain

import (
	"net/http"

	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

// Error codes returned to clients.
const (
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeProductNotFound        = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeReviewNotFound         = "REVIEW_NOT_FOUND"
	CodeEmailDuplication       = "EMAIL_DUPLICATION"
	CodeNicknameDuplication    = "NICKNAME_DUPLICATION"
	CodeReviewDuplication      = "REVIEW_DUPLICATION"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeTokenInvalid           = "TOKEN_INVALID"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeAlreadyLoggedOut       = "ALREADY_LOGOUT"
)

var (
	ErrUserNotFound    = apperrors.New(CodeUserNotFound, "user not found", http.StatusNotFound, apperrors.ErrNotFound)
	ErrProductNotFound = apperrors.New(CodeProductNotFound, "product not found", http.StatusNotFound, apperrors.ErrNotFound)
	ErrOrderNotFound   = apperrors.New(CodeOrderNotFound, "no purchase of this product was found", http.StatusNotFound, apperrors.ErrNotFound)
	ErrReviewNotFound  = apperrors.New(CodeReviewNotFound, "review not found", http.StatusNotFound, apperrors.ErrNotFound)

	ErrEmailDuplication    = apperrors.New(CodeEmailDuplication, "email is already in use", http.StatusConflict, apperrors.ErrAlreadyExists)
	ErrNicknameDuplication = apperrors.New(CodeNicknameDuplication, "nickname is already in use", http.StatusConflict, apperrors.ErrAlreadyExists)
	ErrReviewDuplication   = apperrors.New(CodeReviewDuplication, "a review was already written for this purchase", http.StatusConflict, apperrors.ErrConflict)

	ErrTokenExpired           = apperrors.New(CodeTokenExpired, "token has expired", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrTokenInvalid           = apperrors.New(CodeTokenInvalid, "token is invalid", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrAuthenticationRequired = apperrors.New(CodeAuthenticationRequired, "authentication is required", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrInvalidCredentials     = apperrors.New(CodeInvalidCredentials, "invalid email or password", http.StatusUnauthorized, apperrors.ErrUnauthorized)

	ErrAlreadyLoggedOut = apperrors.New(CodeAlreadyLoggedOut, "user is already logged out", http.StatusBadRequest, apperrors.ErrInvalidInput)

	ErrNotReviewAuthor = apperrors.Forbidden("only the author can modify this review")
)
