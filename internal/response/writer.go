package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/headers"
)

type writerState int

const (
	writerStatusLine writerState = iota
	writerHeaders
	writerBody
)

var ErrWriteOrder = errors.New("response written out of order")

// Writer writes one response in order: status line, headers, body.
// Headers preset on the Writer are merged into the header block unless the
// caller supplies the same key.
type Writer struct {
	w      io.Writer
	preset headers.Headers
	state  writerState
	status StatusCode
	wrote  bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, preset: headers.NewHeaders()}
}

// Preset registers a header sent with every header block this Writer emits.
func (w *Writer) Preset(key, value string) {
	w.preset.Set(key, value)
}

func (w *Writer) WriteStatusLine(code StatusCode) error {
	if w.state != writerStatusLine {
		return ErrWriteOrder
	}
	w.wrote = true
	if err := WriteStatusLine(w.w, code); err != nil {
		return err
	}
	w.status = code
	w.state = writerHeaders
	return nil
}

func (w *Writer) WriteHeaders(h headers.Headers) error {
	if w.state != writerHeaders {
		return ErrWriteOrder
	}
	merged := headers.NewHeaders()
	for k, v := range w.preset {
		merged[k] = v
	}
	for k, v := range h {
		merged.Set(k, v)
	}
	if err := WriteHeaders(w.w, merged); err != nil {
		return err
	}
	w.state = writerBody
	return nil
}

func (w *Writer) WriteBody(p []byte) (int, error) {
	if w.state != writerBody {
		return 0, ErrWriteOrder
	}
	return w.w.Write(p)
}

// WroteAnything reports whether the status line has been started.
func (w *Writer) WroteAnything() bool {
	return w.wrote
}

// Status returns the status code written, or 0.
func (w *Writer) Status() StatusCode {
	return w.status
}

// Write sends a complete response with a body of the given content type.
func (w *Writer) Write(code StatusCode, contentType string, body []byte) error {
	if err := w.WriteStatusLine(code); err != nil {
		return err
	}
	h := GetDefaultHeaders(len(body))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if err := w.WriteHeaders(h); err != nil {
		return err
	}
	_, err := w.WriteBody(body)
	return err
}

// WriteEmpty sends a response with no body.
func (w *Writer) WriteEmpty(code StatusCode) error {
	if err := w.WriteStatusLine(code); err != nil {
		return err
	}
	h := headers.NewHeaders()
	if code != StatusNoContent {
		h.Set("Content-Length", "0")
	}
	return w.WriteHeaders(h)
}

// WriteJSON serializes v and sends it as an application/json response.
func (w *Writer) WriteJSON(code StatusCode, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode json reply: %w", err)
	}
	body = append(body, '\n')
	return w.Write(code, "application/json", body)
}
