package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"video-tournament/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	sessionCookieName = "session_id"
	stateCookieName   = "oauth_state"
	stateCookieTTL    = 10 * time.Minute

	sourceLiked    = "liked"
	sourcePlaylist = "playlist"
)

// Workflow step paths; a request missing a prerequisite is sent to one of these.
const (
	pathHome      = "/"
	pathPlaylists = "/playlists"
	pathChoose    = "/choose"
	pathBracket   = "/bracket"
)

// Authenticator runs the browser-redirect OAuth flow.
type Authenticator interface {
	// AuthCodeURL returns the consent URL the user is redirected to.
	AuthCodeURL(r *http.Request, state string) string
	// Exchange trades the callback's authorization code for a credential.
	Exchange(ctx context.Context, r *http.Request, code string) (*oauth2.Token, error)
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Handler exposes the selection workflow over HTTP using go-chi.
type Handler struct {
	svc     *Service
	auth    Authenticator
	log     *slog.Logger
	metrics *metrics.Metrics
	cookies CookieOptions

	// catalogLimit wraps the routes that call the video catalog.
	catalogLimit func(http.Handler) http.Handler
}

// NewHandler returns a Handler. Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, auth Authenticator, log *slog.Logger, m *metrics.Metrics, cookies CookieOptions) *Handler {
	if cookies.MaxAge <= 0 {
		cookies.MaxAge = DefaultSessionTTL
	}
	return &Handler{svc: svc, auth: auth, log: log, metrics: m, cookies: cookies}
}

// LimitCatalogCalls installs mw in front of every route that reads the video
// catalog. It must be called before Routes.
func (h *Handler) LimitCatalogCalls(mw func(http.Handler) http.Handler) {
	h.catalogLimit = mw
}

// Routes registers the workflow endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/login", h.Login)
	r.Get("/auth", h.Callback)
	r.Post("/logout", h.Logout)
	r.Group(func(r chi.Router) {
		if h.catalogLimit != nil {
			r.Use(h.catalogLimit)
		}
		r.Get("/playlists", h.Playlists)
		r.Route("/prepare", func(r chi.Router) {
			r.Get("/liked", h.PrepareLiked)
			r.Get("/playlist/{playlist_id}", h.PreparePlaylist)
		})
	})
	r.Get("/choose", h.GetChoices)
	r.Post("/choose", h.Choose)
	r.Get("/bracket", h.GetBracket)
	r.Get("/worldcup", h.GetBracket)
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"stage":     h.svc.Stage(sessionID(r)).String(),
		"login_url": "/login",
	})
}

// Login handles GET /login by redirecting to the consent screen.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(r, state), http.StatusFound)
}

// Callback handles GET /auth, the OAuth redirect target.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		h.log.Info("authorization denied", slog.String("reason", denied))
		http.Redirect(w, r, pathHome, http.StatusFound)
		return
	}

	c, err := r.Cookie(stateCookieName)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		h.log.Warn("oauth state mismatch")
		httpError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	code := q.Get("code")
	if code == "" {
		httpError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := h.auth.Exchange(r.Context(), r, code)
	if err != nil {
		h.log.Error("token exchange failed", slog.String("error", err.Error()))
		httpError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	id := h.svc.StartSession(token)
	h.clearCookie(w, stateCookieName)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    string(id),
		Path:     "/",
		MaxAge:   int(h.cookies.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.log.Info("session started")
	if h.metrics != nil {
		h.metrics.IncSessionsStarted()
	}
	http.Redirect(w, r, pathPlaylists, http.StatusFound)
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionID(r); id != "" {
		h.svc.EndSession(id)
	}
	h.clearCookie(w, sessionCookieName)
	http.Redirect(w, r, pathHome, http.StatusSeeOther)
}

// Playlists handles GET /playlists.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	lists, err := h.svc.Playlists(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, "list playlists", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"playlists": lists})
}

// PrepareLiked handles GET /prepare/liked.
func (h *Handler) PrepareLiked(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	pool, err := h.svc.PrepareLiked(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, "prepare liked pool", err)
		return
	}
	h.poolBuilt(sourceLiked, len(pool))
	http.Redirect(w, r, pathChoose, http.StatusFound)
}

// PreparePlaylist handles GET /prepare/playlist/{playlist_id}.
func (h *Handler) PreparePlaylist(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	playlistID := chi.URLParam(r, "playlist_id")
	if playlistID == "" {
		http.Redirect(w, r, pathPlaylists, http.StatusFound)
		return
	}

	pool, err := h.svc.PreparePlaylist(r.Context(), id, playlistID)
	if err != nil {
		h.fail(w, r, id, "prepare playlist pool", err)
		return
	}
	h.poolBuilt(sourcePlaylist, len(pool))
	http.Redirect(w, r, pathChoose, http.StatusFound)
}

// GetChoices handles GET /choose.
func (h *Handler) GetChoices(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	view, err := h.svc.Choices(id)
	if err != nil {
		h.fail(w, r, id, "choices", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Choose handles POST /choose. Form: size=<n>. A missing or non-numeric size
// is treated like any other illegal size and clamped.
func (h *Handler) Choose(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	requested, err := strconv.Atoi(r.PostFormValue("size"))
	if err != nil {
		requested = 0
	}

	bracket, err := h.svc.Choose(id, requested)
	if err != nil {
		h.fail(w, r, id, "choose", err)
		return
	}

	h.log.Debug("bracket drawn",
		slog.Int("requested", requested),
		slog.Int("size", len(bracket)))
	if h.metrics != nil {
		h.metrics.IncBracketsSampled()
	}
	http.Redirect(w, r, pathBracket, http.StatusSeeOther)
}

// GetBracket handles GET /bracket.
func (h *Handler) GetBracket(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	bracket, err := h.svc.Bracket(id)
	if err != nil {
		h.fail(w, r, id, "bracket", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"videos": bracket})
}

// fail maps a service error to a response. Missing prerequisites become a
// redirect to the step the session has actually reached.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, id SessionID, op string, err error) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		http.Redirect(w, r, pathHome, http.StatusFound)
	case errors.Is(err, ErrPoolTooSmall):
		http.Redirect(w, r, pathPlaylists, http.StatusFound)
	case errors.Is(err, ErrNoBracket):
		http.Redirect(w, r, stepPath(h.svc.Stage(id)), http.StatusFound)
	default:
		h.log.Error(op+" failed", slog.String("error", err.Error()))
		httpError(w, http.StatusBadGateway, "video catalog unavailable")
	}
}

func (h *Handler) poolBuilt(source string, size int) {
	h.log.Info("pool built", slog.String("source", source), slog.Int("size", size))
	if h.metrics != nil {
		h.metrics.ObservePool(source, size)
	}
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// stepPath is the page a session at stage s should be looking at.
func stepPath(s Stage) string {
	switch s {
	case StageAuthenticated:
		return pathPlaylists
	case StagePoolReady:
		return pathChoose
	case StageBracketReady:
		return pathBracket
	default:
		return pathHome
	}
}

func sessionID(r *http.Request) SessionID {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return SessionID(c.Value)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
