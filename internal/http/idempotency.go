package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	applog "backoffice/internal/log"
	"backoffice/internal/middleware/trace"

	gocache "github.com/patrickmn/go-cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
)

// idempotencyStore remembers the outcome of POST commands per key so a
// retried request replays the first response instead of writing twice.
type idempotencyStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// idempotentResponse is immutable once stored.
type idempotentResponse struct {
	fingerprint string
	done        bool
	status      int
	header      http.Header
	body        []byte
}

func newIdempotencyStore(ttl time.Duration) *idempotencyStore {
	return &idempotencyStore{
		cache: gocache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

func (s *idempotencyStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(headerIdempotencyKey)
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Idempotency-Key is too long"})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body too large"})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		fp := fingerprint(r, body)

		if err := s.cache.Add(key, &idempotentResponse{fingerprint: fp}, s.ttl); err != nil {
			s.replay(w, r, key, fp)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Server errors are not final; let the client retry with the same key.
		if rec.status >= http.StatusInternalServerError {
			s.cache.Delete(key)
			return
		}
		header := w.Header().Clone()
		header.Del(trace.HeaderRequestID)
		s.cache.Set(key, &idempotentResponse{
			fingerprint: fp,
			done:        true,
			status:      rec.status,
			header:      header,
			body:        rec.body.Bytes(),
		}, s.ttl)
	})
}

func (s *idempotencyStore) replay(w http.ResponseWriter, r *http.Request, key, fp string) {
	v, ok := s.cache.Get(key)
	if !ok {
		// Expired or failed between Add and Get.
		writeJSON(w, http.StatusConflict, errorResponse{Error: "request with this Idempotency-Key is being retried, try again"})
		return
	}
	prev := v.(*idempotentResponse)
	switch {
	case prev.fingerprint != fp:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "Idempotency-Key was already used for a different request"})
	case !prev.done:
		writeJSON(w, http.StatusConflict, errorResponse{Error: "request with this Idempotency-Key is still in progress"})
	default:
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Replaying idempotent response",
			applog.FieldIdempotency, key,
			applog.FieldStatusCode, prev.status)
		for k, vals := range prev.header {
			w.Header()[k] = vals
		}
		w.Header().Set(headerReplayed, "true")
		w.WriteHeader(prev.status)
		_, _ = w.Write(prev.body)
	}
}

func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// recordingWriter tees the response so it can be replayed later.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)
	return rw.ResponseWriter.Write(p)
}

func (rw *recordingWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
