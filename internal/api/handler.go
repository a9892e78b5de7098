package api

import (
	"encoding/json"
	"fmt"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/headers"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/request"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/response"
)

// Handler produces exactly one response for r. It either writes the
// response through w or returns a HandlerError for the dispatcher to write.
// Handlers run on the dispatch loop and must not block.
type Handler func(r *request.Request, w *response.Writer) *HandlerError

// HandlerError represents an error returned from a Handler.
type HandlerError struct {
	Status  response.StatusCode
	Headers headers.Headers
	Body    []byte
}

func (he *HandlerError) Error() string {
	return fmt.Sprintf("handler error %d: %s", int(he.Status), he.Body)
}

// JSONError builds a HandlerError carrying {"error": msg}.
func JSONError(status response.StatusCode, msg string) *HandlerError {
	body, _ := json.Marshal(map[string]string{"error": msg})
	h := headers.NewHeaders()
	h.Set("Content-Type", "application/json")
	return &HandlerError{Status: status, Headers: h, Body: append(body, '\n')}
}

// WriteHandlerError writes a standardized error response.
func WriteHandlerError(w *response.Writer, he *HandlerError) error {
	if he == nil {
		return nil
	}
	if err := w.WriteStatusLine(he.Status); err != nil {
		return err
	}
	body := he.Body
	hdrs := he.Headers
	if hdrs == nil {
		hdrs = response.GetDefaultHeaders(len(body))
	} else {
		hdrs.Set("Content-Length", fmt.Sprintf("%d", len(body)))
		if !hdrs.Has("Content-Type") {
			hdrs.Set("Content-Type", "text/plain")
		}
	}
	if err := w.WriteHeaders(hdrs); err != nil {
		return err
	}
	_, err := w.WriteBody(body)
	return err
}

// DecodeJSON unmarshals the pre-parsed JSON body of r into v. Failures come
// back as 400 responses ready to return from a handler.
func DecodeJSON(r *request.Request, v any) *HandlerError {
	if r.JSONErr != nil {
		return JSONError(response.StatusBadRequest, "invalid JSON input: "+r.JSONErr.Error())
	}
	if r.JSON == nil {
		return JSONError(response.StatusBadRequest, "JSON input required")
	}
	if err := json.Unmarshal(r.JSON, v); err != nil {
		return JSONError(response.StatusBadRequest, "invalid JSON input: "+err.Error())
	}
	return nil
}
