package tournament

import (
	"context"
	"fmt"
)

const (
	// MinDurationSeconds is the shortest video admitted into a pool.
	MinDurationSeconds = 90

	// LikedPageSize and LikedMaxPages bound the liked-videos crawl to at most
	// 300 records and 6 round trips.
	LikedPageSize = 50
	LikedMaxPages = 6

	// PlaylistMaxItems caps the single membership page read for a playlist.
	// Larger playlists are truncated.
	PlaylistMaxItems = 50

	likeRating = "like"
)

// Catalog is the external video catalog the pool builder reads from.
type Catalog interface {
	ListRatedVideos(ctx context.Context, rating string, pageSize int, pageToken string) (RatedPage, error)
	ListPlaylistItems(ctx context.Context, playlistID string, maxResults int) ([]PlaylistEntry, error)
	GetVideoDetails(ctx context.Context, ids []string) ([]VideoDetail, error)
}

// BuildLikedPool pages through the user's liked videos and keeps those at
// least MinDurationSeconds long.
func BuildLikedPool(ctx context.Context, cat Catalog) ([]VideoRef, error) {
	pool := newPoolAccumulator()
	token := ""
	for page := 0; page < LikedMaxPages; page++ {
		res, err := cat.ListRatedVideos(ctx, likeRating, LikedPageSize, token)
		if err != nil {
			return nil, fmt.Errorf("list liked videos page %d: %w", page+1, err)
		}
		for _, it := range res.Items {
			if ParseDuration(it.DurationCode) >= MinDurationSeconds {
				pool.add(VideoRef{ID: it.ID, Title: it.Title})
			}
		}
		token = res.NextPageToken
		if token == "" {
			break
		}
	}
	return pool.videos, nil
}

// BuildPlaylistPool reads one membership page of playlistID, resolves the
// durations of its videos in a single batch and keeps those at least
// MinDurationSeconds long. Titles come from the membership page.
func BuildPlaylistPool(ctx context.Context, cat Catalog, playlistID string) ([]VideoRef, error) {
	entries, err := cat.ListPlaylistItems(ctx, playlistID, PlaylistMaxItems)
	if err != nil {
		return nil, fmt.Errorf("list playlist %s items: %w", playlistID, err)
	}

	ids := make([]string, 0, len(entries))
	titles := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.VideoID == "" {
			continue
		}
		if _, seen := titles[e.VideoID]; !seen {
			ids = append(ids, e.VideoID)
			titles[e.VideoID] = e.Title
		}
	}

	pool := newPoolAccumulator()
	if len(ids) == 0 {
		return pool.videos, nil
	}

	details, err := cat.GetVideoDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get video details for playlist %s: %w", playlistID, err)
	}
	for _, d := range details {
		if ParseDuration(d.DurationCode) < MinDurationSeconds {
			continue
		}
		title := titles[d.ID]
		if title == "" {
			title = d.ID
		}
		pool.add(VideoRef{ID: d.ID, Title: title})
	}
	return pool.videos, nil
}

// poolAccumulator collects videos in arrival order, dropping records without
// an id and repeats of an id already collected.
type poolAccumulator struct {
	videos []VideoRef
	seen   map[string]struct{}
}

func newPoolAccumulator() *poolAccumulator {
	return &poolAccumulator{
		videos: []VideoRef{},
		seen:   make(map[string]struct{}),
	}
}

func (p *poolAccumulator) add(v VideoRef) {
	if v.ID == "" {
		return
	}
	if _, dup := p.seen[v.ID]; dup {
		return
	}
	p.seen[v.ID] = struct{}{}
	p.videos = append(p.videos, v)
}
