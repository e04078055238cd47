package tournament

import (
	"context"
	"fmt"
	"sync"
)

// fakeCatalog serves canned pages and records every call.
type fakeCatalog struct {
	mu sync.Mutex

	ratedPages    []RatedPage
	playlistItems map[string][]PlaylistEntry
	details       map[string]string
	playlists     []Playlist
	err           error

	ratedCalls    []string
	playlistCalls []string
	detailCalls   [][]string
}

func (f *fakeCatalog) ListRatedVideos(_ context.Context, rating string, pageSize int, pageToken string) (RatedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ratedCalls = append(f.ratedCalls, pageToken)
	if f.err != nil {
		return RatedPage{}, f.err
	}
	if rating != "like" || pageSize != LikedPageSize {
		return RatedPage{}, fmt.Errorf("unexpected rating=%q pageSize=%d", rating, pageSize)
	}
	idx := len(f.ratedCalls) - 1
	if idx >= len(f.ratedPages) {
		return RatedPage{}, nil
	}
	return f.ratedPages[idx], nil
}

func (f *fakeCatalog) ListPlaylistItems(_ context.Context, playlistID string, maxResults int) ([]PlaylistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.playlistCalls = append(f.playlistCalls, playlistID)
	if f.err != nil {
		return nil, f.err
	}
	items := f.playlistItems[playlistID]
	if len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}

func (f *fakeCatalog) GetVideoDetails(_ context.Context, ids []string) ([]VideoDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detailCalls = append(f.detailCalls, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]VideoDetail, 0, len(ids))
	for _, id := range ids {
		if code, ok := f.details[id]; ok {
			out = append(out, VideoDetail{ID: id, DurationCode: code})
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListPlaylists(_ context.Context, maxResults, previews int) ([]Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.playlists) > maxResults {
		return f.playlists[:maxResults], nil
	}
	return f.playlists, nil
}

func (f *fakeCatalog) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ratedCalls) + len(f.playlistCalls) + len(f.detailCalls)
}

// likedPage builds a page of n videos named prefix-i, the first short of which
// are under the minimum duration.
func likedPage(prefix string, n, short int, next string) RatedPage {
	items := make([]RatedVideo, 0, n)
	for i := 0; i < n; i++ {
		code := "PT3M30S"
		if i < short {
			code = "PT45S"
		}
		items = append(items, RatedVideo{
			ID:           fmt.Sprintf("%s-%d", prefix, i),
			Title:        fmt.Sprintf("%s title %d", prefix, i),
			DurationCode: code,
		})
	}
	return RatedPage{Items: items, NextPageToken: next}
}

func videoRefs(n int) []VideoRef {
	out := make([]VideoRef, n)
	for i := range out {
		out[i] = VideoRef{ID: fmt.Sprintf("v%d", i), Title: fmt.Sprintf("Video %d", i)}
	}
	return out
}
