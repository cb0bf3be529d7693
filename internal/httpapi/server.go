package httpapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/faideww/catchlog/internal/catchrecord"
	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/identify"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/logging"
	"github.com/faideww/catchlog/internal/ratelimit"
	"github.com/faideww/catchlog/internal/session"
	"github.com/faideww/catchlog/internal/userdata"
)

const maxBodyBytes = 8 << 20

type Deps struct {
	Session  *session.Manager
	Pipeline *identify.Pipeline
	Catches  *catchrecord.Service
	Repo     *userdata.Repository
	KV       *kvstore.KV
	Registry *fish.Registry
	Guard    *ratelimit.Guard
	Clock    clock.Clock
	Logger   *log.Logger
	// Logs is the redacted recent-lines buffer served by /api/logs.
	Logs *logging.Buffer
}

type Server struct {
	Deps
}

func New(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Guard == nil {
		d.Guard = ratelimit.NewGuard(d.Clock)
	}
	return &Server{Deps: d}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", s.getSession).Methods("GET")
	api.Handle("/session/login", s.limit(s.Guard.Login, s.login)).Methods("POST")
	api.HandleFunc("/session/logout", s.logout).Methods("POST")
	api.Handle("/profile", s.limit(s.Guard.Form, s.saveProfile)).Methods("PUT")

	api.Handle("/identify", s.limit(s.Guard.Upload, s.identify)).Methods("POST")

	api.Handle("/catches", s.limit(s.Guard.Form, s.saveCatch)).Methods("POST")
	api.HandleFunc("/catches/top", s.topCatches).Methods("GET")
	api.Handle("/catches/{id}/lure", s.limit(s.Guard.Form, s.attachLure)).Methods("POST")
	api.HandleFunc("/bests", s.bests).Methods("GET")
	api.HandleFunc("/stats", s.stats).Methods("GET")
	api.HandleFunc("/species", s.species).Methods("GET")

	api.HandleFunc("/userdata", s.getUserData).Methods("GET")
	api.Handle("/userdata", s.limit(s.Guard.Form, s.patchUserData)).Methods("PATCH")
	api.HandleFunc("/userdata", s.clearUserData).Methods("DELETE")
	api.Handle("/userdata/catches", s.limit(s.Guard.Form, s.addCatch)).Methods("POST")
	api.HandleFunc("/export", s.export).Methods("GET")
	api.HandleFunc("/logs", s.recentLogs).Methods("GET")
	api.Handle("/lures", s.limit(s.Guard.Form, s.addLure)).Methods("POST")

	return r
}

// limit rejects requests over the limiter's budget for the client
// address with 429 and a Retry-After header. Allowed requests carry
// X-RateLimit-Remaining.
func (s *Server) limit(l *ratelimit.Limiter, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		ok, wait := l.TryKey(key)
		if !ok {
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", fmt.Sprint(secs))
			writeError(w, http.StatusTooManyRequests, fmt.Sprintf("Too many requests. Please wait %s before trying again.", pretty(wait)))
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(key)))
		next(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.Clock.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", s.Clock.Now().Sub(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func transport(r *http.Request) session.Transport {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return session.Transport{Scheme: scheme, Host: r.Host}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// pretty formats a cooldown as m:ss.
func pretty(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}
