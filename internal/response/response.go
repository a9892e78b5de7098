package response

import (
	"fmt"
	"io"
	"sort"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/headers"
)

// StatusCode is the set of HTTP status codes the server emits.
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusNoContent           StatusCode = 204
	StatusBadRequest          StatusCode = 400
	StatusNotFound            StatusCode = 404
	StatusContentTooLarge     StatusCode = 413
	StatusInternalServerError StatusCode = 500
)

// Reason returns the reason phrase for code, or "" when unknown.
func (code StatusCode) Reason() string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusNoContent:
		return "No Content"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusContentTooLarge:
		return "Content Too Large"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return ""
	}
}

// WriteStatusLine writes the HTTP/1.1 status line for the given status code.
func WriteStatusLine(w io.Writer, statusCode StatusCode) error {
	reason := statusCode.Reason()
	if reason == "" {
		_, err := fmt.Fprintf(w, "HTTP/1.1 %d\r\n", int(statusCode))
		return err
	}
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", int(statusCode), reason)
	return err
}

// GetDefaultHeaders returns the framing headers for a body of contentLen bytes.
func GetDefaultHeaders(contentLen int) headers.Headers {
	h := headers.NewHeaders()
	h.Set("Content-Length", fmt.Sprintf("%d", contentLen))
	h.Set("Content-Type", "text/plain")
	return h
}

// WriteHeaders writes headers as "Key: Value\r\n" lines and a final CRLF.
func WriteHeaders(w io.Writer, h headers.Headers) error {
	// Preferred order for the framing headers
	order := []string{"content-length", "connection", "content-type"}
	written := make(map[string]struct{}, len(h))
	for _, k := range order {
		if v, ok := h[k]; ok {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", headers.CanonicalKey(k), v); err != nil {
				return err
			}
			written[k] = struct{}{}
		}
	}
	var rest []string
	for k := range h {
		if _, ok := written[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", headers.CanonicalKey(k), h[k]); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
