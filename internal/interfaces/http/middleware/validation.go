package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/interfaces/http/dto"
)

var setupValidatorOnce sync.Once

// SetupValidator configures the gin validator: error fields carry their
// JSON names and the admin_role tag accepts the known admin roles.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("admin_role", func(fl validator.FieldLevel) bool {
			_, ok := identity.ParseAdminRole(fl.Field().String())
			return ok
		})
	})
}

// FormatValidationErrors turns a bind error into a VALIDATION_ERROR response.
// Field failures and JSON type mismatches are reported per field; malformed
// bodies are reported under "body".
func FormatValidationErrors(err error, requestID string) dto.Response {
	var (
		details     []dto.ValidationDetail
		fieldErrs   validator.ValidationErrors
		typeErr     *json.UnmarshalTypeError
		syntaxErr   *json.SyntaxError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &fieldErrs):
		for _, e := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: e.Field(), Message: getValidationMessage(e)})
		}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		details = append(details, dto.ValidationDetail{
			Field:   typeErr.Field,
			Message: "Must be a " + jsonTypeName(typeErr.Type.Kind()),
		})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		details = append(details, dto.ValidationDetail{Field: "body", Message: "Malformed JSON"})
	case errors.As(err, &maxBytesErr):
		details = append(details, dto.ValidationDetail{Field: "body", Message: "Request body too large"})
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError aborts the request with a validation error response
func HandleValidationError(c *gin.Context, err error) {
	resp := FormatValidationErrors(err, GetRequestID(c))
	c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeValidation), resp)
}

func jsonTypeName(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "whole number"
	default:
		return "number"
	}
}

var validationMessages = map[string]func(e validator.FieldError) string{
	"required":   func(validator.FieldError) string { return "This field is required" },
	"email":      func(validator.FieldError) string { return "Invalid email format" },
	"uuid":       func(validator.FieldError) string { return "Invalid UUID format" },
	"admin_role": func(validator.FieldError) string { return "Must be a known admin role" },
	"oneof":      func(e validator.FieldError) string { return "Must be one of: " + e.Param() },
	"gte":        func(e validator.FieldError) string { return "Must be greater than or equal to " + e.Param() },
	"lte":        func(e validator.FieldError) string { return "Must be less than or equal to " + e.Param() },
	"datetime":   func(e validator.FieldError) string { return "Must match the layout " + e.Param() },
	"min":        func(e validator.FieldError) string { return "Must be at least " + e.Param() + lengthUnit(e) },
	"max":        func(e validator.FieldError) string { return "Must be at most " + e.Param() + lengthUnit(e) },
}

// lengthUnit qualifies min/max on strings, which validate length
func lengthUnit(e validator.FieldError) string {
	if e.Kind() == reflect.String {
		return " characters"
	}
	return ""
}

func getValidationMessage(e validator.FieldError) string {
	if msg, ok := validationMessages[e.Tag()]; ok {
		return msg(e)
	}
	return "Invalid value"
}
