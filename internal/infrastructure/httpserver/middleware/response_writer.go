package middleware

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
)

// captureWriter tees everything written to the wrapped writer into a buffer and hands
// the result to onFinalize once the handler is done.
type captureWriter struct {
	http.ResponseWriter
	status     int
	body       bytes.Buffer
	wrote      bool
	finalized  bool
	onFinalize func(status int, body []byte)
}

func newCaptureWriter(w http.ResponseWriter, onFinalize func(status int, body []byte)) *captureWriter {
	return &captureWriter{ResponseWriter: w, status: http.StatusOK, onFinalize: onFinalize}
}

func (w *captureWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.wrote = true
	n, err := w.ResponseWriter.Write(b)
	w.body.Write(b[:n])
	return n, err
}

// Flush is a no-op when nothing underneath can flush.
func (w *captureWriter) Flush() {
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *captureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// finalize runs the callback once, and only if the handler emitted a response.
func (w *captureWriter) finalize() {
	if w.finalized || !w.wrote {
		return
	}
	w.finalized = true
	if w.onFinalize != nil {
		w.onFinalize(w.status, w.body.Bytes())
	}
}
