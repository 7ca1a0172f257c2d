package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
)

const (
	headerRequestID = "X-Request-ID"
	maxLoggedBody   = 1000
	peekLimit       = 8 << 10
	redacted        = "***"
)

// paths that are never recorded in the activity log
var skipActivity = map[string]bool{
	"/":             true,
	"/health":       true,
	"/docs":         true,
	"/openapi.json": true,
	"/redoc":        true,
}

var reMultipartFilename = regexp.MustCompile(`(?i)filename[=:]\s*["']?([^"'\r\n;]+)["']?`)

// requestID tags each request with an id, honouring one supplied by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// optionalAuth puts the caller on the context when a valid bearer token is
// present. Anonymous and invalid tokens pass through unchanged.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := bearerToken(r); tok != "" && s.auth != nil {
			if u, err := s.auth.Authenticate(r.Context(), tok); err == nil {
				r = r.WithContext(common.WithUser(r.Context(), u.ID, u.Username))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status and the first bytes of the response body.
type statusRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	if room := maxLoggedBody*utf8.UTFMax - s.body.Len(); room > 0 {
		s.body.Write(b[:min(room, len(b))])
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// recordActivity logs every request and stores it in the activity log.
func (s *Server) recordActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var reqSummary string
		if r.Method != http.MethodGet && r.Body != nil && !skipActivity[r.URL.Path] {
			reqSummary = s.peekBody(r)
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", common.RequestIDFromContext(r.Context()),
		)
		if s.activity == nil || skipActivity[r.URL.Path] {
			return
		}

		entry := &entity.ActivityLog{
			RequestID:    common.RequestIDFromContext(r.Context()),
			Method:       r.Method,
			Endpoint:     r.URL.Path,
			StatusCode:   rec.status,
			RequestBody:  reqSummary,
			ResponseBody: responseSummary(rec),
			IPAddress:    clientIP(r),
			UserAgent:    capString(r.UserAgent(), 1024),
			DurationMS:   elapsed.Milliseconds(),
		}
		if id, ok := common.UserIDFromContext(r.Context()); ok {
			entry.UserID = &id
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		defer cancel()
		if err := s.activity.Record(ctx, entry); err != nil {
			s.logger.Error("failed to record activity", "path", r.URL.Path, "error", err)
		}
	})
}

// peekBody reads at most peekLimit bytes and splices them back in front of the
// rest of the body for the handler.
func (s *Server) peekBody(r *http.Request) string {
	buf, err := io.ReadAll(io.LimitReader(r.Body, peekLimit))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if err != nil {
		s.logger.Debug("could not capture request body", "error", err)
		return ""
	}
	ct := r.Header.Get("Content-Type")
	if len(buf) == peekLimit && !strings.Contains(strings.ToLower(ct), "multipart/form-data") {
		// passwords in a truncated document cannot be masked
		return "Request body of 8 KiB or more"
	}
	return requestSummary(buf, ct)
}

type readCloser struct {
	io.Reader
	io.Closer
}

func requestSummary(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "multipart/form-data"):
		if m := reMultipartFilename.FindSubmatch(body); m != nil {
			name := strings.Trim(strings.TrimSpace(string(m[1])), `"'`)
			name = path.Base(strings.ReplaceAll(name, `\`, "/"))
			return "File upload: " + name
		}
		return "File upload (multipart/form-data)"
	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		vals, err := url.ParseQuery(string(body))
		if err != nil {
			return ""
		}
		if vals.Has("password") {
			vals.Set("password", redacted)
		}
		return capString(vals.Encode(), maxLoggedBody)
	}
	if compact, ok := compactJSON(body); ok {
		return capString(compact, maxLoggedBody)
	}
	if utf8.Valid(body) {
		return capString(string(body), maxLoggedBody)
	}
	return ""
}

func responseSummary(rec *statusRecorder) string {
	ct := rec.Header().Get("Content-Type")
	if rec.body.Len() == 0 || !(strings.HasPrefix(ct, "application/json") || strings.HasPrefix(ct, "text/")) {
		return ""
	}
	if compact, ok := compactJSON(rec.body.Bytes()); ok {
		return capString(compact, maxLoggedBody)
	}
	return capString(strings.ToValidUTF8(rec.body.String(), ""), maxLoggedBody)
}

// compactJSON re-encodes a JSON document on one line with password and
// access_token values masked.
func compactJSON(b []byte) (string, bool) {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", false
	}
	if m, ok := doc.(map[string]any); ok {
		for _, k := range []string{"password", "access_token"} {
			if _, present := m[k]; present {
				m[k] = redacted
			}
		}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// capString limits s to n runes.
func capString(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
