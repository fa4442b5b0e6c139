package http_middleware

import (
	"bytes"
	"net/http"
)

// bufferedWriter holds the handler's response until classification has
// run, because Go flushes headers to the wire with the first body byte.
// An explicit Flush from the handler switches to passthrough: from then
// on the response streams and issue headers are skipped for this request.
type bufferedWriter struct {
	rw          http.ResponseWriter
	buf         bytes.Buffer
	statusCode  int
	wroteHeader bool
	streaming   bool
	delivered   bool
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{rw: w, statusCode: http.StatusOK}
}

func (bw *bufferedWriter) Header() http.Header { return bw.rw.Header() }

func (bw *bufferedWriter) WriteHeader(code int) {
	if bw.wroteHeader {
		return
	}
	bw.wroteHeader = true
	bw.statusCode = code
	if bw.streaming {
		bw.rw.WriteHeader(code)
	}
}

func (bw *bufferedWriter) Write(p []byte) (int, error) {
	if !bw.wroteHeader {
		bw.WriteHeader(http.StatusOK)
	}
	if bw.streaming {
		return bw.rw.Write(p)
	}
	return bw.buf.Write(p)
}

// Flush implements http.Flusher. The first call abandons buffering,
// forwards everything written so far and streams the rest.
func (bw *bufferedWriter) Flush() {
	if !bw.streaming {
		bw.streaming = true
		bw.wroteHeader = true
		bw.delivered = true
		bw.rw.WriteHeader(bw.statusCode)
		if bw.buf.Len() > 0 {
			_, _ = bw.rw.Write(bw.buf.Bytes())
			bw.buf.Reset()
		}
	}
	if f, ok := bw.rw.(http.Flusher); ok {
		f.Flush()
	}
}

// deliver sends the buffered status and body to the wire. In streaming
// mode everything has already been sent.
func (bw *bufferedWriter) deliver() {
	if bw.delivered {
		return
	}
	bw.delivered = true
	bw.rw.WriteHeader(bw.statusCode)
	if bw.buf.Len() > 0 {
		_, _ = bw.rw.Write(bw.buf.Bytes())
	}
}

func (bw *bufferedWriter) status() int { return bw.statusCode }

func (bw *bufferedWriter) streamed() bool { return bw.streaming }
