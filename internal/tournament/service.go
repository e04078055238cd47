package tournament

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// PlaylistListMax caps how many of the user's playlists are offered.
	PlaylistListMax = 50
	// PlaylistPreviewCount is the number of thumbnails shown per playlist.
	PlaylistPreviewCount = 4
)

var (
	// ErrNotAuthenticated is returned for operations on a session that does
	// not exist or has expired.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPoolTooSmall is returned when the session's pool cannot hold even
	// the smallest bracket.
	ErrPoolTooSmall = errors.New("pool too small for a bracket")

	// ErrNoBracket is returned when no bracket has been drawn yet.
	ErrNoBracket = errors.New("no bracket selected")
)

// UserCatalog is a Catalog bound to one user's credential, which can also
// list that user's playlists.
type UserCatalog interface {
	Catalog
	ListPlaylists(ctx context.Context, maxResults, previews int) ([]Playlist, error)
}

// CatalogFactory opens a UserCatalog that authenticates with tokens.
type CatalogFactory func(ctx context.Context, tokens oauth2.TokenSource) (UserCatalog, error)

// TokenRefresher wraps a stored credential in a source that renews it once it
// expires.
type TokenRefresher func(ctx context.Context, token *oauth2.Token) oauth2.TokenSource

// Service runs the selection workflow for a session: build a pool, offer
// bracket sizes, draw a bracket. State lives in the Repository.
type Service struct {
	repo     Repository
	catalogs CatalogFactory
	sampler  *Sampler
	refresh  TokenRefresher
}

// NewService returns a Service. If sampler is nil a runtime-seeded one is used.
func NewService(repo Repository, catalogs CatalogFactory, sampler *Sampler) *Service {
	if sampler == nil {
		sampler = NewSampler()
	}
	return &Service{repo: repo, catalogs: catalogs, sampler: sampler}
}

// RefreshTokensWith makes catalog calls renew expired credentials through r.
// Renewed credentials are stored back in the session. Without a refresher the
// stored credential is used as is.
func (s *Service) RefreshTokensWith(r TokenRefresher) {
	s.refresh = r
}

// StartSession records a freshly authenticated user and returns the new session id.
func (s *Service) StartSession(token *oauth2.Token) SessionID {
	return s.repo.CreateSession(token)
}

// EndSession discards all state held for id.
func (s *Service) EndSession(id SessionID) {
	s.repo.DestroySession(id)
}

// Stage reports the workflow position of id.
func (s *Service) Stage(id SessionID) Stage {
	return s.repo.Stage(id)
}

// HasPool reports whether id has a non-empty pool.
func (s *Service) HasPool(id SessionID) bool {
	return s.repo.HasPool(id)
}

// HasBracket reports whether id has a drawn bracket.
func (s *Service) HasBracket(id SessionID) bool {
	return s.repo.HasBracket(id)
}

// Playlists lists the session user's playlists with preview thumbnails.
func (s *Service) Playlists(ctx context.Context, id SessionID) ([]Playlist, error) {
	cat, err := s.catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	lists, err := cat.ListPlaylists(ctx, PlaylistListMax, PlaylistPreviewCount)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return lists, nil
}

// PrepareLiked builds the session's pool from the user's liked videos.
func (s *Service) PrepareLiked(ctx context.Context, id SessionID) ([]VideoRef, error) {
	cat, err := s.catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	pool, err := BuildLikedPool(ctx, cat)
	if err != nil {
		return nil, err
	}
	return pool, s.storePool(id, pool)
}

// PreparePlaylist builds the session's pool from one of the user's playlists.
func (s *Service) PreparePlaylist(ctx context.Context, id SessionID, playlistID string) ([]VideoRef, error) {
	cat, err := s.catalog(ctx, id)
	if err != nil {
		return nil, err
	}
	pool, err := BuildPlaylistPool(ctx, cat, playlistID)
	if err != nil {
		return nil, err
	}
	return pool, s.storePool(id, pool)
}

// Choices returns the pool size and the bracket sizes it allows.
func (s *Service) Choices(id SessionID) (ChoiceView, error) {
	pool, _, ok := s.repo.Snapshot(id)
	if !ok {
		return ChoiceView{}, ErrNotAuthenticated
	}
	if len(pool) < MinPoolSize {
		return ChoiceView{}, ErrPoolTooSmall
	}
	return ChoiceView{PoolSize: len(pool), AvailableSizes: AvailableSizes(len(pool))}, nil
}

// Choose draws a bracket of the requested size from the session's pool and
// stores it. An illegal size is clamped to the largest legal one. The draw
// and the store are one repository step, so a pool rebuilt concurrently
// never ends up next to a bracket drawn from its predecessor.
func (s *Service) Choose(id SessionID, requested int) ([]VideoRef, error) {
	bracket, err := s.repo.DrawBracket(id, func(pool []VideoRef) ([]VideoRef, error) {
		if len(pool) < MinPoolSize {
			return nil, ErrPoolTooSmall
		}
		return s.sampler.Sample(pool, ValidateSize(requested, len(pool))), nil
	})
	if err != nil {
		return nil, notAuthenticated(err)
	}
	return bracket, nil
}

// Bracket returns the session's current bracket.
func (s *Service) Bracket(id SessionID) ([]VideoRef, error) {
	_, bracket, ok := s.repo.Snapshot(id)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if len(bracket) == 0 {
		return nil, ErrNoBracket
	}
	return bracket, nil
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	return s.repo.ActiveSessionCount()
}

func (s *Service) catalog(ctx context.Context, id SessionID) (UserCatalog, error) {
	token, ok := s.repo.Token(id)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	src := oauth2.StaticTokenSource(token)
	if s.refresh != nil {
		src = s.refresh(ctx, token)
	}
	tokens := &savingTokenSource{
		src:  src,
		last: token,
		save: func(t *oauth2.Token) error { return s.repo.SetToken(id, t) },
	}
	cat, err := s.catalogs(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return cat, nil
}

func (s *Service) storePool(id SessionID, pool []VideoRef) error {
	if err := s.repo.SetPool(id, pool); err != nil {
		return notAuthenticated(err)
	}
	return nil
}

// notAuthenticated folds a vanished session into ErrNotAuthenticated.
func notAuthenticated(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return ErrNotAuthenticated
	}
	return err
}
