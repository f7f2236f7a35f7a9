// internal/database/credentials.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"portfolio-sync/internal/model"
)

const credentialColumns = `
	id, account, encrypted_token, is_active, created_at, updated_at, last_used_at`

func scanCredential(row pgx.Row) (model.Credential, error) {
	var c model.Credential
	err := row.Scan(&c.ID, &c.Account, &c.EncryptedToken, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt, &c.LastUsedAt)
	return c, err
}

const getActiveCredential = `
SELECT` + credentialColumns + `
FROM github_credentials
WHERE account = $1 AND is_active
LIMIT 1`

func (q *Queries) GetActiveCredential(ctx context.Context, account string) (model.Credential, error) {
	return scanCredential(q.db.QueryRow(ctx, getActiveCredential, account))
}

const deactivateCredentials = `
UPDATE github_credentials
SET is_active = FALSE, updated_at = now()
WHERE account = $1 AND is_active`

// DeactivateCredentials retires any active row for the account. Rows are
// never deleted so the audit trail survives token rotation.
func (q *Queries) DeactivateCredentials(ctx context.Context, account string) error {
	_, err := q.db.Exec(ctx, deactivateCredentials, account)
	return err
}

// CreateCredentialParams inserts a new active credential row.
type CreateCredentialParams struct {
	Account        string
	EncryptedToken string
}

const createCredential = `
INSERT INTO github_credentials (account, encrypted_token, is_active)
VALUES ($1, $2, TRUE)
RETURNING` + credentialColumns

func (q *Queries) CreateCredential(ctx context.Context, arg CreateCredentialParams) (model.Credential, error) {
	return scanCredential(q.db.QueryRow(ctx, createCredential, arg.Account, arg.EncryptedToken))
}

const touchCredentialUsage = `
UPDATE github_credentials SET last_used_at = now() WHERE id = $1`

func (q *Queries) TouchCredentialUsage(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, touchCredentialUsage, id)
	return err
}
