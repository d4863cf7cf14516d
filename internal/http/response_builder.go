// Package http serves the JSON API: ledger CRUD, dashboard, analytics,
// reports and the admin views, behind bearer-token auth.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/trace"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ResponseBuilder assembles a response before anything is written, so a
// marshalling failure can still become a clean 500.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
	err        error
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = err
		return b
	}
	b.headers["Content-Type"] = contentTypeJSON
	b.body = append(data, '\n')
	return b
}

// Body sets raw content, e.g. a rendered PDF.
func (b *ResponseBuilder) Body(contentType string, data []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = data
	return b
}

// Attachment marks the body as a download named filename.
func (b *ResponseBuilder) Attachment(filename string) *ResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string            `json:"error"`
	Field     string            `json:"field,omitempty"`
	Fields    []core.FieldError `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(ErrorBody{Error: message})
}

// badRequest marks input the handler could not even decode.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func newBadRequest(msg string) error { return &badRequest{msg: msg} }

// classify maps a service error to a status, a body and a log category.
func classify(err error) (int, ErrorBody, string) {
	var (
		verr     *core.ValidationError
		conflict *core.ConflictError
		bad      *badRequest
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorBody{Error: "validation failed", Fields: verr.Fields}, applog.ErrorTypeValidation
	case errors.As(err, &conflict):
		return http.StatusConflict, ErrorBody{Error: conflict.Message, Field: conflict.Field}, applog.ErrorTypeConflict
	case errors.As(err, &bad):
		return http.StatusBadRequest, ErrorBody{Error: bad.msg}, applog.ErrorTypeValidation
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}, applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: "not found"}, applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, ErrorBody{Error: "conflict"}, applog.ErrorTypeConflict
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorBody{Error: "authentication required"}, applog.ErrorTypeAuth
	case errors.Is(err, core.ErrInactiveUser):
		return http.StatusForbidden, ErrorBody{Error: "account is deactivated"}, applog.ErrorTypeAuth
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: "forbidden"}, applog.ErrorTypeAuth
	default:
		return http.StatusInternalServerError, ErrorBody{Error: "internal error"}, applog.ErrorTypeInternal
	}
}

// writeError renders err and logs it: server faults at error level, client
// mistakes at debug.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body, kind := classify(err)
	body.RequestID = trace.GetRequestID(r.Context())

	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP)
	if status >= http.StatusInternalServerError {
		logger.LogError(r.Context(), "Request failed", err, kind, r.Method+" "+r.URL.Path, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldStatusCode, status, applog.FieldErrorType, kind, applog.FieldError, err)
	}

	resp := NewResponse().Status(status).JSON(body)
	if status == http.StatusUnauthorized {
		resp.Header("WWW-Authenticate", `Bearer realm="bilancio"`)
	}
	resp.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w)
}
