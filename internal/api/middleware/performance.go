package middleware

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriters = sync.Pool{
	New: func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return gz
	},
}

type gzipWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipWriter) Write(b []byte) (int, error) {
	return w.gz.Write(b)
}

// Compression gzips the body when the client accepts it
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzipWriters.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gzipWriters.Put(gz)
		}()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")

		next.ServeHTTP(&gzipWriter{ResponseWriter: w, gz: gz}, r)
	})
}

// bufferedResponse holds the status and body until the handler returns
type bufferedResponse struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	return b.body.Write(p)
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) code() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

// ETag answers conditional GETs with 304 when the body hash matches If-None-Match.
// Only 200 responses are tagged.
func ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		buf := &bufferedResponse{ResponseWriter: w}
		next.ServeHTTP(buf, r)

		if buf.code() != http.StatusOK {
			w.WriteHeader(buf.code())
			_, _ = w.Write(buf.body.Bytes())
			return
		}

		sum := sha256.Sum256(buf.body.Bytes())
		etag := `"` + hex.EncodeToString(sum[:16]) + `"`
		w.Header().Set("ETag", etag)

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Del("Content-Encoding")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.body.Bytes())
	})
}

// CacheControl marks the doctor directory as shared-cacheable for five
// minutes; every other route must revalidate
func CacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/doctors") {
			w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
		} else {
			w.Header().Set("Cache-Control", "private, no-cache, must-revalidate")
		}
		next.ServeHTTP(w, r)
	})
}

// ResponseOptimization chains CacheControl, ETag and Compression.
// WebSocket upgrades skip it; the buffering writers cannot be hijacked.
func ResponseOptimization(next http.Handler) http.Handler {
	optimized := CacheControl(ETag(Compression(next)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}
		optimized.ServeHTTP(w, r)
	})
}
