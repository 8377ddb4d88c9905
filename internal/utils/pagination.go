package utils

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DefaultLimit is the default number of items per page
const DefaultLimit = 20

// MaxLimit is the maximum number of items per page
const MaxLimit = 500

// PaginationRequest holds pagination parameters
type PaginationRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Normalize clamps the request to page >= 1 and 1 <= limit <= MaxLimit
func (p PaginationRequest) Normalize() PaginationRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows skipped before the page
func (p PaginationRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination holds pagination metadata
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	PerPage     int   `json:"per_page"`
}

// GetPaginationFromContext extracts pagination parameters from the query string.
// Missing or out of range values are normalized; non-numeric ones are an error.
func GetPaginationFromContext(ctx *gin.Context) (PaginationRequest, error) {
	var pagination PaginationRequest
	if err := ctx.ShouldBindQuery(&pagination); err != nil {
		return PaginationRequest{}, err
	}
	return pagination.Normalize(), nil
}

// ApplyPagination applies pagination to a GORM query
func ApplyPagination(query *gorm.DB, pagination PaginationRequest) *gorm.DB {
	pagination = pagination.Normalize()
	return query.Offset(pagination.Offset()).Limit(pagination.Limit)
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, pagination PaginationRequest, totalItems int64) PaginatedResponse {
	pagination = pagination.Normalize()
	totalPages := int(totalItems / int64(pagination.Limit))
	if totalItems%int64(pagination.Limit) > 0 {
		totalPages++
	}

	return PaginatedResponse{
		Data: data,
		Pagination: Pagination{
			CurrentPage: pagination.Page,
			TotalPages:  totalPages,
			TotalItems:  totalItems,
			PerPage:     pagination.Limit,
		},
	}
}
