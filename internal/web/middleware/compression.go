package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// gzipMinSize is the smallest body worth compressing. Short JSON
// payloads grow under gzip framing.
const gzipMinSize = 1024

var gzipPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// Compression gzips response bodies for clients that advertise gzip
// support. The API renders each response with a single write, so the
// compress-or-not decision is made on the first body write.
func Compression() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			gw := &gzipWriter{ResponseWriter: w}
			defer gw.close()

			next.ServeHTTP(gw, r)
		})
	}
}

// gzipWriter defers the status line until the first body write, when
// the encoding headers are known.
type gzipWriter struct {
	http.ResponseWriter
	gz     *gzip.Writer
	status int
	wrote  bool
}

func (gw *gzipWriter) WriteHeader(code int) {
	if gw.status == 0 {
		gw.status = code
	}
}

func (gw *gzipWriter) Write(b []byte) (int, error) {
	if !gw.wrote {
		if len(b) >= gzipMinSize {
			gw.Header().Set("Content-Encoding", "gzip")
			gw.Header().Add("Vary", "Accept-Encoding")
			gw.Header().Del("Content-Length")
			gw.gz = gzipPool.Get().(*gzip.Writer)
			gw.gz.Reset(gw.ResponseWriter)
		}
		gw.flushHeader()
	}

	if gw.gz != nil {
		return gw.gz.Write(b)
	}
	return gw.ResponseWriter.Write(b)
}

func (gw *gzipWriter) flushHeader() {
	if gw.wrote {
		return
	}
	gw.wrote = true
	if gw.status == 0 {
		gw.status = http.StatusOK
	}
	gw.ResponseWriter.WriteHeader(gw.status)
}

// close flushes the status line even for bodiless responses and
// returns the gzip writer to the pool.
func (gw *gzipWriter) close() {
	gw.flushHeader()
	if gw.gz != nil {
		gw.gz.Close()
		gzipPool.Put(gw.gz)
		gw.gz = nil
	}
}
