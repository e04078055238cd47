package tournament

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

func newTestService(cat *fakeCatalog) (*Service, *SessionRepository) {
	repo := NewSessionRepository()
	factory := func(context.Context, oauth2.TokenSource) (UserCatalog, error) {
		return cat, nil
	}
	return NewService(repo, factory, NewSeededSampler(1, 1)), repo
}

func playlistCatalog(n int) *fakeCatalog {
	entries := make([]PlaylistEntry, n)
	details := map[string]string{}
	for i, v := range videoRefs(n) {
		entries[i] = PlaylistEntry{VideoID: v.ID, Title: v.Title}
		details[v.ID] = "PT5M"
	}
	return &fakeCatalog{
		playlistItems: map[string][]PlaylistEntry{"PL": entries},
		details:       details,
		playlists:     []Playlist{{ID: "PL", Title: "Mix", Previews: []string{"https://i.ytimg.com/a.jpg"}}},
	}
}

func TestNewService_default_sampler(t *testing.T) {
	svc := NewService(NewSessionRepository(), nil, nil)
	if svc == nil || svc.sampler == nil {
		t.Fatal("NewService(nil sampler) should create one")
	}
}

func TestService_unauthenticated(t *testing.T) {
	svc, _ := newTestService(playlistCatalog(8))
	id := SessionID("nobody")
	ctx := context.Background()

	if _, err := svc.Playlists(ctx, id); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Playlists: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.PrepareLiked(ctx, id); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("PrepareLiked: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.PreparePlaylist(ctx, id, "PL"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("PreparePlaylist: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.Choices(id); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Choices: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.Choose(id, 2); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Choose: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.Bracket(id); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Bracket: expected ErrNotAuthenticated, got %v", err)
	}
}

func TestService_full_flow(t *testing.T) {
	svc, _ := newTestService(playlistCatalog(5))
	ctx := context.Background()
	id := svc.StartSession(&oauth2.Token{AccessToken: "tok"})

	if s := svc.Stage(id); s != StageAuthenticated {
		t.Fatalf("Stage: got %v", s)
	}

	lists, err := svc.Playlists(ctx, id)
	if err != nil || len(lists) != 1 || lists[0].ID != "PL" {
		t.Fatalf("Playlists: %v %v", lists, err)
	}

	pool, err := svc.PreparePlaylist(ctx, id, "PL")
	if err != nil {
		t.Fatalf("PreparePlaylist: %v", err)
	}
	if len(pool) != 5 || !svc.HasPool(id) {
		t.Fatalf("pool: len %d has=%v", len(pool), svc.HasPool(id))
	}

	view, err := svc.Choices(id)
	if err != nil {
		t.Fatalf("Choices: %v", err)
	}
	if view.PoolSize != 5 || len(view.AvailableSizes) != 2 || view.AvailableSizes[1] != 4 {
		t.Errorf("Choices: got %+v", view)
	}

	bracket, err := svc.Choose(id, 4)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if len(bracket) != 4 {
		t.Errorf("Choose: got %d videos want 4", len(bracket))
	}

	stored, err := svc.Bracket(id)
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	for i := range bracket {
		if stored[i] != bracket[i] {
			t.Errorf("stored bracket differs at %d: %v vs %v", i, stored[i], bracket[i])
		}
	}
	if s := svc.Stage(id); s != StageBracketReady {
		t.Errorf("Stage: got %v", s)
	}

	svc.EndSession(id)
	if s := svc.Stage(id); s != StageUnauthenticated {
		t.Errorf("Stage after EndSession: got %v", s)
	}
	if n := svc.ActiveSessions(); n != 0 {
		t.Errorf("ActiveSessions: got %d", n)
	}
}

func TestService_Choose_clamps_size(t *testing.T) {
	svc, _ := newTestService(playlistCatalog(40))
	id := svc.StartSession(nil)
	if _, err := svc.PreparePlaylist(context.Background(), id, "PL"); err != nil {
		t.Fatal(err)
	}

	for _, requested := range []int{64, 10, 0} {
		bracket, err := svc.Choose(id, requested)
		if err != nil {
			t.Fatalf("Choose(%d): %v", requested, err)
		}
		if len(bracket) != 32 {
			t.Errorf("Choose(%d): got %d videos want 32", requested, len(bracket))
		}
	}
}

func TestService_pool_too_small(t *testing.T) {
	svc, _ := newTestService(playlistCatalog(1))
	id := svc.StartSession(nil)

	if _, err := svc.Choices(id); !errors.Is(err, ErrPoolTooSmall) {
		t.Errorf("Choices without pool: expected ErrPoolTooSmall, got %v", err)
	}

	pool, err := svc.PreparePlaylist(context.Background(), id, "PL")
	if err != nil || len(pool) != 1 {
		t.Fatalf("PreparePlaylist: %v %v", pool, err)
	}
	if _, err := svc.Choices(id); !errors.Is(err, ErrPoolTooSmall) {
		t.Errorf("Choices: expected ErrPoolTooSmall, got %v", err)
	}
	if _, err := svc.Choose(id, 2); !errors.Is(err, ErrPoolTooSmall) {
		t.Errorf("Choose: expected ErrPoolTooSmall, got %v", err)
	}
}

func TestService_Bracket_before_choose(t *testing.T) {
	svc, _ := newTestService(playlistCatalog(4))
	id := svc.StartSession(nil)
	_, _ = svc.PreparePlaylist(context.Background(), id, "PL")

	if _, err := svc.Bracket(id); !errors.Is(err, ErrNoBracket) {
		t.Errorf("expected ErrNoBracket, got %v", err)
	}
}

func TestService_PrepareLiked_replaces_pool_and_bracket(t *testing.T) {
	cat := playlistCatalog(8)
	cat.ratedPages = []RatedPage{likedPage("liked", 3, 0, "")}
	svc, _ := newTestService(cat)
	ctx := context.Background()
	id := svc.StartSession(nil)

	_, _ = svc.PreparePlaylist(ctx, id, "PL")
	if _, err := svc.Choose(id, 8); err != nil {
		t.Fatal(err)
	}

	pool, err := svc.PrepareLiked(ctx, id)
	if err != nil {
		t.Fatalf("PrepareLiked: %v", err)
	}
	if len(pool) != 3 {
		t.Errorf("liked pool: got %d want 3", len(pool))
	}
	if svc.HasBracket(id) {
		t.Error("preparing a new pool should drop the old bracket")
	}
}

func TestService_catalog_errors(t *testing.T) {
	boom := errors.New("upstream down")
	svc, _ := newTestService(&fakeCatalog{err: boom})
	ctx := context.Background()
	id := svc.StartSession(nil)

	if _, err := svc.Playlists(ctx, id); !errors.Is(err, boom) {
		t.Errorf("Playlists: expected upstream error, got %v", err)
	}
	if _, err := svc.PrepareLiked(ctx, id); !errors.Is(err, boom) {
		t.Errorf("PrepareLiked: expected upstream error, got %v", err)
	}
	if svc.HasPool(id) {
		t.Error("failed build must not store a pool")
	}
}

func TestService_catalog_factory_error(t *testing.T) {
	boom := errors.New("bad token")
	repo := NewSessionRepository()
	svc := NewService(repo, func(context.Context, oauth2.TokenSource) (UserCatalog, error) {
		return nil, boom
	}, nil)
	id := svc.StartSession(nil)

	if _, err := svc.PrepareLiked(context.Background(), id); !errors.Is(err, boom) {
		t.Errorf("expected factory error, got %v", err)
	}
}

// poolSwapRepository replaces the session's pool the first time the service
// reads it, as a concurrent PreparePlaylist would.
type poolSwapRepository struct {
	*SessionRepository
	once sync.Once
	swap func()
}

func (r *poolSwapRepository) fire() { r.once.Do(r.swap) }

func (r *poolSwapRepository) Pool(id SessionID) []VideoRef {
	pool := r.SessionRepository.Pool(id)
	r.fire()
	return pool
}

func (r *poolSwapRepository) Snapshot(id SessionID) ([]VideoRef, []VideoRef, bool) {
	pool, bracket, ok := r.SessionRepository.Snapshot(id)
	r.fire()
	return pool, bracket, ok
}

func (r *poolSwapRepository) DrawBracket(id SessionID, draw func([]VideoRef) ([]VideoRef, error)) ([]VideoRef, error) {
	r.fire()
	return r.SessionRepository.DrawBracket(id, draw)
}

func assertBracketFromPool(t *testing.T, repo *SessionRepository, id SessionID) {
	t.Helper()
	pool, bracket, ok := repo.Snapshot(id)
	if !ok {
		t.Fatal("session vanished")
	}
	inPool := make(map[string]bool, len(pool))
	for _, v := range pool {
		inPool[v.ID] = true
	}
	for _, v := range bracket {
		if !inPool[v.ID] {
			t.Fatalf("bracket video %q is not in the stored pool", v.ID)
		}
	}
}

func TestService_Choose_pool_replaced_mid_call(t *testing.T) {
	inner := NewSessionRepository()
	id := inner.CreateSession(nil)
	if err := inner.SetPool(id, videoRefs(8)); err != nil {
		t.Fatal(err)
	}
	fresh := []VideoRef{{ID: "new1"}, {ID: "new2"}, {ID: "new3"}, {ID: "new4"}}
	repo := &poolSwapRepository{SessionRepository: inner}
	repo.swap = func() {
		if err := inner.SetPool(id, fresh); err != nil {
			t.Errorf("SetPool: %v", err)
		}
	}
	svc := NewService(repo, nil, NewSeededSampler(1, 1))

	bracket, err := svc.Choose(id, 8)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if len(bracket) != 4 {
		t.Errorf("Choose: got %d videos want 4 from the replaced pool", len(bracket))
	}
	assertBracketFromPool(t, inner, id)

	stored, err := svc.Bracket(id)
	if err != nil || len(stored) != len(bracket) {
		t.Errorf("Bracket: got %v %v", stored, err)
	}
}

func TestService_concurrent_prepare_and_choose(t *testing.T) {
	svc, repo := newTestService(playlistCatalog(8))
	id := svc.StartSession(nil)
	if err := repo.SetPool(id, videoRefs(8)); err != nil {
		t.Fatal(err)
	}

	pools := make([][]VideoRef, 4)
	for i := range pools {
		pools[i] = make([]VideoRef, 2<<i)
		for j := range pools[i] {
			pools[i][j] = VideoRef{ID: fmt.Sprintf("p%d-%d", i, j)}
		}
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := repo.SetPool(id, pools[i%len(pools)]); err != nil {
				t.Errorf("SetPool: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := svc.Choose(id, 16); err != nil {
				t.Errorf("Choose: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			bracket, err := svc.Bracket(id)
			if err == nil && len(bracket) == 0 {
				t.Error("Bracket returned an empty bracket without error")
				return
			}
			if err != nil && !errors.Is(err, ErrNoBracket) {
				t.Errorf("Bracket: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	assertBracketFromPool(t, repo, id)
}

func TestService_refreshed_token_is_stored(t *testing.T) {
	repo := NewSessionRepository()
	var seen []string
	factory := func(_ context.Context, tokens oauth2.TokenSource) (UserCatalog, error) {
		tok, err := tokens.Token()
		if err != nil {
			return nil, err
		}
		seen = append(seen, tok.AccessToken)
		return &fakeCatalog{}, nil
	}
	refreshes := 0
	svc := NewService(repo, factory, nil)
	svc.RefreshTokensWith(func(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
		if tok.AccessToken == "expired" {
			refreshes++
			return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "renewed", RefreshToken: "r"})
		}
		return oauth2.StaticTokenSource(tok)
	})

	id := svc.StartSession(&oauth2.Token{AccessToken: "expired", RefreshToken: "r"})
	for i := 0; i < 2; i++ {
		if _, err := svc.Playlists(context.Background(), id); err != nil {
			t.Fatalf("Playlists: %v", err)
		}
	}

	if refreshes != 1 {
		t.Errorf("expected one refresh, got %d", refreshes)
	}
	if len(seen) != 2 || seen[0] != "renewed" || seen[1] != "renewed" {
		t.Errorf("tokens handed to catalog: %v", seen)
	}
	if tok, ok := repo.Token(id); !ok || tok.AccessToken != "renewed" {
		t.Errorf("stored token: %v %v", tok, ok)
	}
}

func TestService_token_without_refresher(t *testing.T) {
	repo := NewSessionRepository()
	var got *oauth2.Token
	svc := NewService(repo, func(_ context.Context, tokens oauth2.TokenSource) (UserCatalog, error) {
		tok, err := tokens.Token()
		got = tok
		return &fakeCatalog{}, err
	}, nil)
	id := svc.StartSession(&oauth2.Token{AccessToken: "tok"})

	if _, err := svc.Playlists(context.Background(), id); err != nil {
		t.Fatalf("Playlists: %v", err)
	}
	if got == nil || got.AccessToken != "tok" {
		t.Errorf("catalog got token %v", got)
	}
}
