// internal/credentials/store.go
package credentials

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"portfolio-sync/internal/crypto"
	"portfolio-sync/internal/database"
	"portfolio-sync/internal/githubapi"
	"portfolio-sync/internal/model"
)

// Querier is the credential slice of the database query surface, plus
// transactional execution for the rotation unit in Save.
type Querier interface {
	GetActiveCredential(ctx context.Context, account string) (model.Credential, error)
	DeactivateCredentials(ctx context.Context, account string) error
	CreateCredential(ctx context.Context, arg database.CreateCredentialParams) (model.Credential, error)
	TouchCredentialUsage(ctx context.Context, id int64) error
	ExecTx(ctx context.Context, fn func(database.Querier) error) error
}

// Store manages encrypted GitHub access tokens. It owns all writes to the
// credentials table; a nil crypto manager puts it in a degraded mode where
// Save refuses and ActiveToken finds nothing.
type Store struct {
	db     Querier
	crypto *crypto.Manager
	logger *slog.Logger
}

// NewStore creates a credential store. cryptoMgr may be nil when no
// encryption key is configured.
func NewStore(db Querier, cryptoMgr *crypto.Manager, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		crypto: cryptoMgr,
		logger: logger,
	}
}

// Save deactivates any prior active credential for the account and inserts
// the token as the new active row. It reports false, leaving prior state
// intact, when encryption is unavailable or persistence fails.
func (s *Store) Save(ctx context.Context, account, token string) bool {
	if s.crypto == nil {
		s.logger.Error("Cannot store credentials, encryption not available")
		return false
	}

	encrypted, err := s.crypto.Encrypt(token)
	if err != nil {
		s.logger.Error("Failed to encrypt token", "account", account, "error", err)
		return false
	}

	// Deactivate and insert are one atomic unit: a failed insert must not
	// leave the account without an active credential.
	err = s.db.ExecTx(ctx, func(q database.Querier) error {
		if err := q.DeactivateCredentials(ctx, account); err != nil {
			return err
		}
		_, err := q.CreateCredential(ctx, database.CreateCredentialParams{
			Account:        account,
			EncryptedToken: encrypted,
		})
		return err
	})
	if err != nil {
		s.logger.Error("Failed to store credentials", "account", account, "error", err)
		return false
	}

	s.logger.Info("GitHub credentials stored", "account", account)
	return true
}

// ActiveToken decrypts the active credential for the account and bumps its
// last-used timestamp. The second return is false when no usable credential
// exists.
func (s *Store) ActiveToken(ctx context.Context, account string) (string, bool) {
	if s.crypto == nil {
		return "", false
	}

	cred, err := s.db.GetActiveCredential(ctx, account)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("Failed to load active credential", "account", account, "error", err)
		}
		return "", false
	}

	token, err := s.crypto.Decrypt(cred.EncryptedToken)
	if err != nil {
		s.logger.Warn("Failed to decrypt stored token", "account", account, "error", err)
		return "", false
	}

	if err := s.db.TouchCredentialUsage(ctx, cred.ID); err != nil {
		s.logger.Warn("Failed to update credential usage time", "account", account, "error", err)
	}
	return token, true
}

// BootstrapFromToken validates a bootstrap token (typically GITHUB_TOKEN
// from the environment) by resolving its owner, then stores it encrypted
// under the discovered login. It returns the login and whether the
// credential was stored.
func (s *Store) BootstrapFromToken(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}

	client := githubapi.NewClient(githubapi.StaticTokenSource{AccessToken: token}, 1, s.logger)
	account, err := client.AuthenticatedAccount(ctx)
	if err != nil {
		s.logger.Error("Bootstrap token rejected by GitHub", "error", err)
		return "", false
	}
	return account.Login, s.Save(ctx, account.Login, token)
}

// TokenSource adapts the store to the API client's token resolution chain.
func (s *Store) TokenSource(account string) githubapi.TokenSource {
	return &storeTokenSource{store: s, account: account}
}

type storeTokenSource struct {
	store   *Store
	account string
}

func (t *storeTokenSource) Token(ctx context.Context) (string, error) {
	token, ok := t.store.ActiveToken(ctx, t.account)
	if !ok {
		return "", githubapi.ErrNoToken
	}
	return token, nil
}
