package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/joss/taskd/internal/errorsx"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v before sending headers, so an unencodable value
// becomes a 500 instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		writeErr(w, errorsx.Wrap(fmt.Errorf("encode response: %w", err), errorsx.ReasonInternal))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeErr maps a reasoned error to its status code.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, errorsx.HTTPStatus(err), err.Error())
}

// decodeBody reads a JSON object from r into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errorsx.Newf(errorsx.ReasonValidation, "request body is required")
		case errors.As(err, &maxErr):
			return errorsx.Newf(errorsx.ReasonValidation, "request body exceeds %d bytes", maxErr.Limit)
		default:
			return errorsx.Wrap(fmt.Errorf("invalid request body: %w", err), errorsx.ReasonValidation)
		}
	}
	return nil
}

// statusRecorder captures the response status for access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
