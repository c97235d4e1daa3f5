package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"tunetally/internal/app/rankings"
	"tunetally/internal/app/users"
	"tunetally/internal/auth"
	"tunetally/internal/lock"
	"tunetally/internal/logging"
	"tunetally/internal/models"
	"tunetally/internal/store"
)

// Authenticator resolves bearer tokens to callers.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// UserService captures the user-facing operations needed by the HTTP handlers.
type UserService interface {
	SignIn(ctx context.Context, id, name string, image *string) (users.Session, error)
	Get(ctx context.Context, id string) (models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateFavorites(ctx context.Context, id string, fav models.Favorites) (models.User, error)
	UpdateImage(ctx context.Context, id string, image *string) (models.User, error)
	Delete(ctx context.Context, id string) error
}

// VoteService exposes the daily voting workflows.
type VoteService interface {
	Cast(ctx context.Context, userID string, req models.VoteRequest) (models.Vote, error)
	Today(ctx context.Context, userID string) (models.Vote, error)
	First(ctx context.Context, userID string) (models.Vote, error)
	Last(ctx context.Context, userID string) (models.Vote, error)
	All(ctx context.Context, userID string) ([]models.Vote, error)
	Delete(ctx context.Context, id int64) (models.DeletedVote, error)
}

// FriendService coordinates friend requests and friendships.
type FriendService interface {
	SendRequest(ctx context.Context, senderID, receiverID string) (models.FriendRequest, error)
	Accept(ctx context.Context, senderID, receiverID string) (models.Friendship, error)
	DeclineAsReceiver(ctx context.Context, requestID int64, receiverID string) (models.FriendRequest, error)
	Friends(ctx context.Context, userID string) ([]models.FriendView, error)
	Incoming(ctx context.Context, userID string) ([]models.PendingRequest, error)
	Outgoing(ctx context.Context, userID string) ([]models.PendingRequest, error)
}

// RankingService builds leaderboards and feeds.
type RankingService interface {
	Leaderboard(ctx context.Context, q rankings.Query) (rankings.Leaderboard, error)
}

// Option customises a Server.
type Option func(*Server)

// WithDevLogin exposes the development sign-in endpoint.
func WithDevLogin(enabled bool) Option {
	return func(s *Server) { s.devLogin = enabled }
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	auth     Authenticator
	users    UserService
	votes    VoteService
	friends  FriendService
	rankings RankingService
	devLogin bool
}

// New configures a Server.
func New(
	authenticator Authenticator,
	users UserService,
	votes VoteService,
	friends FriendService,
	rankings RankingService,
	opts ...Option,
) *Server {
	s := &Server{
		auth:     authenticator,
		users:    users,
		votes:    votes,
		friends:  friends,
		rankings: rankings,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	if s.devLogin {
		api.HandleFunc("/auth/dev-login", s.handleDevLogin).Methods(http.MethodPost)
	}
	api.Handle("/leaderboard", s.optionalAuth(http.HandlerFunc(s.handleLeaderboard))).Methods(http.MethodGet)

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAuth, requireAdmin)
	admin.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/votes/{id:[0-9]+}", s.handleDeleteVote).Methods(http.MethodDelete)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(s.requireAuth)

	protected.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/me/favorites", s.handleUpdateFavorites).Methods(http.MethodPut)
	protected.HandleFunc("/me/image", s.handleUpdateImage).Methods(http.MethodPut)
	protected.HandleFunc("/users", s.handleSearchUsers).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)

	protected.HandleFunc("/votes", s.handleCastVote).Methods(http.MethodPost)
	protected.HandleFunc("/me/votes", s.handleMyVotes).Methods(http.MethodGet)
	protected.HandleFunc("/me/votes/first", s.handleFirstVote).Methods(http.MethodGet)
	protected.HandleFunc("/me/votes/last", s.handleLastVote).Methods(http.MethodGet)
	protected.HandleFunc("/me/votes/today", s.handleTodayVote).Methods(http.MethodGet)

	protected.HandleFunc("/friend-requests", s.handleSendFriendRequest).Methods(http.MethodPost)
	protected.HandleFunc("/friend-requests/accept", s.handleAcceptFriendRequest).Methods(http.MethodPost)
	protected.HandleFunc("/friend-requests/{id:[0-9]+}/decline", s.handleDeclineFriendRequest).Methods(http.MethodPost)
	protected.HandleFunc("/me/friends", s.handleFriends).Methods(http.MethodGet)
	protected.HandleFunc("/me/friend-requests/incoming", s.handleIncomingRequests).Methods(http.MethodGet)
	protected.HandleFunc("/me/friend-requests/outgoing", s.handleOutgoingRequests).Methods(http.MethodGet)

	return router
}

type errorResponse struct {
	Error string `json:"error"`
}

// requireAuth rejects requests without a valid bearer token and stores the
// caller on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		id, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), id)))
	})
}

// optionalAuth resolves the caller when a token is present. A present but
// invalid token is still rejected.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), id)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok || !id.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withCaller(ctx context.Context, id auth.Identity) context.Context {
	ctx = auth.WithIdentity(ctx, id)
	return logging.WithUserID(ctx, id.UserID)
}

// caller returns the authenticated user id. Routes behind requireAuth always have one.
func caller(r *http.Request) string {
	id, _ := auth.IdentityFrom(r.Context())
	return id.UserID
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrForbidden),
		errors.Is(err, store.ErrAlreadyVotedToday):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalidVote),
		errors.Is(err, store.ErrInvalidFriendRequest),
		errors.Is(err, store.ErrInvalidUser),
		errors.Is(err, rankings.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrVoteNotFound),
		errors.Is(err, store.ErrFriendRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrFriendRequestExists),
		errors.Is(err, store.ErrAlreadyFriends):
		return http.StatusConflict
	case errors.Is(err, lock.ErrNotAcquired):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as JSON. Server-side failures are logged and their
// detail is not exposed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		msg := "internal server error"
		if status == http.StatusServiceUnavailable {
			msg = "service busy, retry shortly"
		}
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return false
	}
	return true
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
