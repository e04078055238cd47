package tournament

import (
	"time"

	"golang.org/x/oauth2"
)

// SessionID identifies one authenticated browser session.
type SessionID string

// VideoRef is a single bracket candidate.
type VideoRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Playlist is one of the user's playlists as offered on the source-selection step.
type Playlist struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Previews []string `json:"previews"`
}

// RatedVideo is a record from the liked-videos listing.
type RatedVideo struct {
	ID           string
	Title        string
	DurationCode string
}

// RatedPage is one page of RatedVideo records. An empty NextPageToken means
// there are no further pages.
type RatedPage struct {
	Items         []RatedVideo
	NextPageToken string
}

// PlaylistEntry is a playlist membership record.
type PlaylistEntry struct {
	VideoID string
	Title   string
}

// VideoDetail carries the duration metadata of a single video.
type VideoDetail struct {
	ID           string
	DurationCode string
}

// ChoiceView is what the size-choice step renders.
type ChoiceView struct {
	PoolSize       int   `json:"pool_size"`
	AvailableSizes []int `json:"available_sizes"`
}

// SessionState holds everything kept for one session between requests.
// A stored SessionState is never mutated; writers replace it as a whole.
type SessionState struct {
	ID        SessionID
	Token     *oauth2.Token
	Pool      []VideoRef
	Bracket   []VideoRef
	CreatedAt time.Time
}

// Stage is the position of a session in the selection workflow.
type Stage int

const (
	StageUnauthenticated Stage = iota
	StageAuthenticated
	StagePoolReady
	StageBracketReady
)

func (s Stage) String() string {
	switch s {
	case StageAuthenticated:
		return "authenticated"
	case StagePoolReady:
		return "pool_ready"
	case StageBracketReady:
		return "bracket_ready"
	default:
		return "unauthenticated"
	}
}
