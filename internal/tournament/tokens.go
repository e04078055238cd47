package tournament

import (
	"sync"

	"golang.org/x/oauth2"
)

// savingTokenSource hands out tokens from src and stores any token that
// differs from the session's current one, so an expired credential is renewed
// once rather than on every request.
type savingTokenSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	last *oauth2.Token
	save func(*oauth2.Token) error
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok == nil || (s.last != nil && tok.AccessToken == s.last.AccessToken) {
		return tok, nil
	}
	// A session that ended mid-request has nowhere to keep the token; the
	// current call still uses it.
	_ = s.save(tok)
	s.last = tok
	return tok, nil
}
