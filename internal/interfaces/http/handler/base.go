package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/logger"
	"github.com/shopadmin/backend/internal/interfaces/http/dto"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the id assigned by the request id middleware
func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// currentActor returns the authenticated actor or answers 401
func (h *BaseHandler) currentActor(c *gin.Context) (admin.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Authentication required", nil)
		return admin.Actor{}, false
	}
	return actor, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Page sends one page of items with the pagination meta
func (h *BaseHandler) Page(c *gin.Context, items any, total int64, page shared.Page) {
	c.JSON(http.StatusOK, dto.NewPageResponse(items, total, page))
}

// Error sends an error response, deriving the status code from the error code
func (h *BaseHandler) Error(c *gin.Context, code, message string, details map[string]any) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c), details))
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context) {
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred", nil)
}

// HandleError converts an error into an HTTP response. Domain errors keep
// their code, message and details. Anything else is logged and answered
// with a generic INTERNAL_ERROR.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var (
		validationErrs validator.ValidationErrors
		typeErr        *json.UnmarshalTypeError
	)
	if errors.As(err, &validationErrs) || errors.As(err, &typeErr) {
		middleware.HandleValidationError(c, err)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != shared.CodeInternal {
		h.Error(c, domainErr.Code, domainErr.Message, domainErr.Details)
		return
	}

	logger.L(c.Request.Context()).Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("route", c.FullPath()),
		zap.Error(err))
	h.InternalError(c)
}

// Result writes the outcome of a pipeline mutation. Replayed responses carry
// the Idempotent-Replayed header and the replayed flag.
func (h *BaseHandler) Result(c *gin.Context, res *admin.Result) {
	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	resp := dto.NewMessageResponse(res.Data, res.Message)
	if res.Replayed {
		resp.Replayed = true
		c.Header(idempotency.ReplayHeader, "true")
	}
	c.JSON(status, resp)
}

// Read writes the payload of a pipeline read. A paginated payload is split
// into the items and the pagination meta.
func (h *BaseHandler) Read(c *gin.Context, payload any) {
	page, ok := payload.(map[string]any)
	if !ok {
		h.Success(c, payload)
		return
	}
	items, hasItems := page["items"]
	total, hasTotal := page["total"]
	if !hasItems || !hasTotal {
		h.Success(c, payload)
		return
	}
	if items == nil {
		items = []any{}
	}
	h.Page(c, items, jsonInt64(total), shared.Page{
		Page:     int(jsonInt64(page["page"])),
		PageSize: int(jsonInt64(page["page_size"])),
	})
}

func jsonInt64(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		i, _ := n.Int64()
		return i
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// bindMutation decodes a mutation body into req, validates it and returns
// the client idempotency key taken from the body or the Idempotency-Key
// header. An empty body decodes as {}.
func bindMutation(c *gin.Context, req any) (string, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", shared.NewValidationError("Request body too large", map[string]any{"max_bytes": maxErr.Limit})
		}
		return "", shared.NewValidationError("Unable to read request body", nil)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", shared.NewValidationError("Request body must be a JSON object", nil)
	}
	if err := json.Unmarshal(raw, req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return "", err
		}
		logger.L(c.Request.Context()).Debug("Request body rejected", zap.String("route", c.FullPath()), zap.Error(err))
		return "", shared.NewValidationError("Request body contains a value that could not be decoded", nil)
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return "", err
	}
	return idempotency.ExtractKey(body, c.GetHeader(idempotency.HeaderName)), nil
}
