// Package youtube adapts the YouTube Data API v3 to the tournament catalog.
package youtube

import (
	"context"
	"fmt"

	"video-tournament/internal/tournament"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// Client reads videos and playlists through the YouTube Data API.
type Client struct {
	service *ytapi.Service
}

var _ tournament.UserCatalog = (*Client)(nil)

// New creates a Client. Pass option.WithTokenSource for user-scoped calls
// (liked videos, own playlists) or option.WithAPIKey for public playlists.
func New(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{service: svc}, nil
}

// ListRatedVideos returns one page of videos the user rated with rating.
func (c *Client) ListRatedVideos(ctx context.Context, rating string, pageSize int, pageToken string) (tournament.RatedPage, error) {
	call := c.service.Videos.List([]string{"snippet", "contentDetails"}).
		MyRating(rating).
		MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return tournament.RatedPage{}, fmt.Errorf("videos.list myRating=%s: %w", rating, err)
	}

	page := tournament.RatedPage{
		Items:         make([]tournament.RatedVideo, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, v := range resp.Items {
		if v == nil {
			continue
		}
		rv := tournament.RatedVideo{ID: v.Id}
		if v.Snippet != nil {
			rv.Title = v.Snippet.Title
		}
		if v.ContentDetails != nil {
			rv.DurationCode = v.ContentDetails.Duration
		}
		page.Items = append(page.Items, rv)
	}
	return page, nil
}

// ListPlaylistItems returns the first maxResults entries of a playlist.
// Entries that do not reference a video carry an empty VideoID.
func (c *Client) ListPlaylistItems(ctx context.Context, playlistID string, maxResults int) ([]tournament.PlaylistEntry, error) {
	resp, err := c.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("playlistItems.list %s: %w", playlistID, err)
	}

	out := make([]tournament.PlaylistEntry, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it == nil || it.Snippet == nil {
			continue
		}
		e := tournament.PlaylistEntry{Title: it.Snippet.Title}
		if it.Snippet.ResourceId != nil {
			e.VideoID = it.Snippet.ResourceId.VideoId
		}
		out = append(out, e)
	}
	return out, nil
}

// GetVideoDetails returns duration metadata for ids in one request. Unknown
// or private ids are simply absent from the result.
func (c *Client) GetVideoDetails(ctx context.Context, ids []string) ([]tournament.VideoDetail, error) {
	if len(ids) == 0 {
		return []tournament.VideoDetail{}, nil
	}

	resp, err := c.service.Videos.List([]string{"contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list %d ids: %w", len(ids), err)
	}

	out := make([]tournament.VideoDetail, 0, len(resp.Items))
	for _, v := range resp.Items {
		if v == nil {
			continue
		}
		d := tournament.VideoDetail{ID: v.Id}
		if v.ContentDetails != nil {
			d.DurationCode = v.ContentDetails.Duration
		}
		out = append(out, d)
	}
	return out, nil
}

// ListPlaylists returns the user's own playlists, each with up to previews
// medium-size thumbnails taken from its first entries.
func (c *Client) ListPlaylists(ctx context.Context, maxResults, previews int) ([]tournament.Playlist, error) {
	resp, err := c.service.Playlists.List([]string{"snippet"}).
		Mine(true).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("playlists.list mine: %w", err)
	}

	out := make([]tournament.Playlist, 0, len(resp.Items))
	for _, p := range resp.Items {
		if p == nil {
			continue
		}
		pl := tournament.Playlist{ID: p.Id, Previews: []string{}}
		if p.Snippet != nil {
			pl.Title = p.Snippet.Title
		}
		if previews > 0 {
			thumbs, err := c.previewThumbnails(ctx, p.Id, previews)
			if err != nil {
				return nil, err
			}
			pl.Previews = thumbs
		}
		out = append(out, pl)
	}
	return out, nil
}

func (c *Client) previewThumbnails(ctx context.Context, playlistID string, n int) ([]string, error) {
	resp, err := c.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(int64(n)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("playlistItems.list preview %s: %w", playlistID, err)
	}

	urls := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it == nil || it.Snippet == nil || it.Snippet.Thumbnails == nil || it.Snippet.Thumbnails.Medium == nil {
			continue
		}
		urls = append(urls, it.Snippet.Thumbnails.Medium.Url)
	}
	return urls, nil
}
