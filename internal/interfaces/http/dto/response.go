package dto

import "github.com/shopadmin/backend/internal/domain/shared"

// Response is the envelope of every API response. Replayed marks a stored
// idempotent response served again.
type Response struct {
	Success  bool       `json:"success"`
	Data     any        `json:"data,omitempty"`
	Message  string     `json:"message,omitempty"`
	Replayed bool       `json:"replayed,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Meta     *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the error part of the envelope
type ErrorInfo struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Meta is the pagination of a list response
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewMessageResponse is a success response with a human readable message,
// as returned by mutations
func NewMessageResponse(data any, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

// NewPageResponse wraps one page of items. page is normalized first so the
// meta matches what the repository actually returned.
func NewPageResponse(items any, total int64, page shared.Page) Response {
	p := shared.NewPaginated[struct{}](nil, total, page)
	return Response{
		Success: true,
		Data:    items,
		Meta: &Meta{
			Total:      p.Total,
			Page:       p.Page,
			PageSize:   p.PageSize,
			TotalPages: p.TotalPages,
		},
	}
}

// ListRequest holds the pagination and search query shared by list endpoints
type ListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"omitempty,max=100"`
}

// ToPage converts the request into a normalized domain page
func (r ListRequest) ToPage() shared.Page {
	return shared.Page{Page: r.Page, PageSize: r.PageSize}.Normalize()
}
