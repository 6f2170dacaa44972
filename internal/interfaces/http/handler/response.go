package handler

import "github.com/propledger/backend/internal/interfaces/http/dto"

// APIResponse is the envelope of a single-resource response in the OpenAPI document
// @Description Success envelope; money fields are integer cents
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// ListResponse is the envelope of a paged list in the OpenAPI document
// @Description Paged list envelope; meta carries the page and the total count
type ListResponse[T any] struct {
	Success bool      `json:"success"`
	Data    []T       `json:"data"`
	Meta    *dto.Meta `json:"meta"`
}

// ErrorResponse is the envelope of a failed request
// @Description Error envelope; details lists invalid fields on validation errors
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
