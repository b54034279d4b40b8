package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/floramind/floramind/internal/chat"
	"github.com/floramind/floramind/internal/gateway"
	"github.com/floramind/floramind/internal/store"
)

// Server is the floramind HTTP API server.
type Server struct {
	db          *store.DB
	gateway     *gateway.Gateway
	chat        *chat.Manager
	clk         clock.Clock
	log         *zap.SugaredLogger
	defaultCity string
	router      chi.Router
	version     string
	started     time.Time
}

// New creates a new Server. The chat manager may be nil when no
// text-generation provider is configured.
func New(db *store.DB, gw *gateway.Gateway, chatMgr *chat.Manager, clk clock.Clock, log *zap.SugaredLogger, defaultCity, version string) *Server {
	s := &Server{
		db:          db,
		gateway:     gw,
		chat:        chatMgr,
		clk:         clk,
		log:         log,
		defaultCity: defaultCity,
		version:     version,
		started:     time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/users/register", s.handleRegister)
		r.Post("/users/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/users/logout", s.handleLogout)
			r.Get("/user/profile", s.handleGetProfile)
			r.Put("/user/profile", s.handleUpdateProfile)
			r.Put("/user/password", s.handleChangePassword)

			r.Get("/plants", s.handleListPlants)
			r.Post("/plants", s.handleCreatePlant)
			r.Put("/plants/{plantID}", s.handleUpdatePlant)
			r.Delete("/plants/{plantID}", s.handleDeletePlant)
			r.Post("/plants/{plantID}/water", s.handleRecordWater)
			r.Post("/plants/{plantID}/fertilize", s.handleRecordFertilize)

			r.Get("/reminders", s.handleReminders)
			r.Get("/weather", s.handleWeather)
			r.Post("/ai/chat", s.handleChat)

			r.Get("/diaries", s.handleListDiaries)
			r.Post("/diaries", s.handleCreateDiary)
			r.Put("/diaries/{diaryID}", s.handleUpdateDiary)
			r.Delete("/diaries/{diaryID}", s.handleDeleteDiary)
		})
	})

	s.router = r
}

// respond writes the {code, msg, data} envelope every endpoint uses.
// The HTTP status is always 200 for application-level outcomes; transport
// status codes are reserved for auth and malformed requests.
func respond(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]any{
		"code": code,
		"msg":  msg,
		"data": data,
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{"code": 400, "msg": msg, "data": nil})
}

type ctxKey int

const userKey ctxKey = 0

// requireAuth resolves the bearer token and stores the user on the request
// context. Handlers behind it can assume an owned, validated user.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		user, err := s.db.UserByToken(token)
		if err != nil {
			s.log.Errorw("token lookup failed", "err", err)
			unauthorized(w)
			return
		}
		if user == nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"code": 401, "msg": "not authenticated", "data": nil})
}

func currentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(userKey).(*store.User)
	return u
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping() == nil
	respond(w, 200, "ok", map[string]any{
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
	})
}
