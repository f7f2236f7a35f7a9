// internal/database/querier.go
package database

import (
	"context"

	"portfolio-sync/internal/model"
)

// Querier is the query surface consumed by the syncer, the credential store
// and the API layer. It is implemented by *Queries and mocked in tests.
type Querier interface {
	UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (model.Repository, error)
	GetRepositoryByGithubID(ctx context.Context, githubID int64) (model.Repository, error)
	ListRepositories(ctx context.Context, limit int32) ([]model.Repository, error)
	ListRepositoriesByLanguage(ctx context.Context, arg ListRepositoriesByLanguageParams) ([]model.Repository, error)
	CountRepositories(ctx context.Context) (int64, error)

	DeleteRepositoryLanguages(ctx context.Context, repositoryID int64) error
	InsertRepositoryLanguage(ctx context.Context, arg InsertRepositoryLanguageParams) error
	ListRepositoryLanguages(ctx context.Context, repositoryID int64) ([]model.RepositoryLanguage, error)
	ListLanguageStats(ctx context.Context) ([]model.LanguageStat, error)

	CreateSyncLog(ctx context.Context, arg CreateSyncLogParams) (model.SyncLog, error)
	CompleteSyncLog(ctx context.Context, arg CompleteSyncLogParams) error
	GetLastSyncLog(ctx context.Context, account string) (model.SyncLog, error)
	ListSyncLogs(ctx context.Context, arg ListSyncLogsParams) ([]model.SyncLog, error)

	GetActiveCredential(ctx context.Context, account string) (model.Credential, error)
	DeactivateCredentials(ctx context.Context, account string) error
	CreateCredential(ctx context.Context, arg CreateCredentialParams) (model.Credential, error)
	TouchCredentialUsage(ctx context.Context, id int64) error
}

var _ Querier = (*Queries)(nil)
