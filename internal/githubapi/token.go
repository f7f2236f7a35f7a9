// internal/githubapi/token.go
package githubapi

import "context"

// TokenSource resolves a GitHub access token. Implementations: a static
// bootstrap token, the stored active credential, and the anonymous source
// for public-only syncs. A source returns ErrNoToken when it has nothing
// to offer.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource serves a fixed token, typically from the environment.
type StaticTokenSource struct {
	AccessToken string
}

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s.AccessToken == "" {
		return "", ErrNoToken
	}
	return s.AccessToken, nil
}

// AnonymousTokenSource authorizes nothing. The client falls back to
// unauthenticated requests, which only reach public repositories.
type AnonymousTokenSource struct{}

func (AnonymousTokenSource) Token(ctx context.Context) (string, error) {
	return "", nil
}

// ChainTokenSource tries each source in order and returns the first token.
// Sources that fail are skipped; callers see ErrNoToken only when the
// whole chain is exhausted.
type ChainTokenSource []TokenSource

func (c ChainTokenSource) Token(ctx context.Context) (string, error) {
	for _, src := range c {
		token, err := src.Token(ctx)
		if err != nil {
			// A broken source (e.g. unreadable credential row) must not
			// mask a later working one.
			continue
		}
		return token, nil
	}
	return "", ErrNoToken
}
