// internal/database/repositories.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"portfolio-sync/internal/model"
)

const repositoryColumns = `
	id, github_id, name, full_name, description, html_url, homepage,
	clone_url, ssh_url, language, stargazers_count, watchers_count,
	forks_count, size, default_branch, topics, is_fork, is_private,
	has_issues, has_projects, has_wiki, archived, disabled,
	pushed_at, created_at_github, updated_at_github, fetched_at, last_synced_at`

func scanRepository(row pgx.Row) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(
		&r.ID, &r.GithubID, &r.Name, &r.FullName, &r.Description, &r.HTMLURL,
		&r.Homepage, &r.CloneURL, &r.SSHURL, &r.Language, &r.StarsCount,
		&r.WatchersCount, &r.ForksCount, &r.Size, &r.DefaultBranch, &r.Topics,
		&r.IsFork, &r.IsPrivate, &r.HasIssues, &r.HasProjects, &r.HasWiki,
		&r.Archived, &r.Disabled, &r.PushedAt, &r.GithubCreated,
		&r.GithubUpdated, &r.FetchedAt, &r.LastSyncedAt,
	)
	return r, err
}

// UpsertRepositoryParams carries every externally sourced repository field.
type UpsertRepositoryParams struct {
	GithubID      int64
	Name          string
	FullName      string
	Description   *string
	HTMLURL       string
	Homepage      *string
	CloneURL      *string
	SSHURL        *string
	Language      *string
	StarsCount    int
	WatchersCount int
	ForksCount    int
	Size          int
	DefaultBranch string
	Topics        []string
	IsFork        bool
	IsPrivate     bool
	HasIssues     bool
	HasProjects   bool
	HasWiki       bool
	Archived      bool
	Disabled      bool
	PushedAt      *time.Time
	GithubCreated *time.Time
	GithubUpdated *time.Time
	LastSyncedAt  time.Time
}

const upsertRepository = `
INSERT INTO github_repositories (
	github_id, name, full_name, description, html_url, homepage,
	clone_url, ssh_url, language, stargazers_count, watchers_count,
	forks_count, size, default_branch, topics, is_fork, is_private,
	has_issues, has_projects, has_wiki, archived, disabled,
	pushed_at, created_at_github, updated_at_github, fetched_at, last_synced_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $26
)
ON CONFLICT (github_id) DO UPDATE SET
	name = EXCLUDED.name,
	full_name = EXCLUDED.full_name,
	description = EXCLUDED.description,
	html_url = EXCLUDED.html_url,
	homepage = EXCLUDED.homepage,
	clone_url = EXCLUDED.clone_url,
	ssh_url = EXCLUDED.ssh_url,
	language = EXCLUDED.language,
	stargazers_count = EXCLUDED.stargazers_count,
	watchers_count = EXCLUDED.watchers_count,
	forks_count = EXCLUDED.forks_count,
	size = EXCLUDED.size,
	default_branch = EXCLUDED.default_branch,
	topics = EXCLUDED.topics,
	is_fork = EXCLUDED.is_fork,
	is_private = EXCLUDED.is_private,
	has_issues = EXCLUDED.has_issues,
	has_projects = EXCLUDED.has_projects,
	has_wiki = EXCLUDED.has_wiki,
	archived = EXCLUDED.archived,
	disabled = EXCLUDED.disabled,
	pushed_at = EXCLUDED.pushed_at,
	created_at_github = EXCLUDED.created_at_github,
	updated_at_github = EXCLUDED.updated_at_github,
	last_synced_at = EXCLUDED.last_synced_at
RETURNING` + repositoryColumns

// UpsertRepository inserts or updates the cache row keyed on github_id.
// fetched_at keeps its original value on update.
func (q *Queries) UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (model.Repository, error) {
	row := q.db.QueryRow(ctx, upsertRepository,
		arg.GithubID, arg.Name, arg.FullName, arg.Description, arg.HTMLURL,
		arg.Homepage, arg.CloneURL, arg.SSHURL, arg.Language, arg.StarsCount,
		arg.WatchersCount, arg.ForksCount, arg.Size, arg.DefaultBranch,
		arg.Topics, arg.IsFork, arg.IsPrivate, arg.HasIssues, arg.HasProjects,
		arg.HasWiki, arg.Archived, arg.Disabled, arg.PushedAt,
		arg.GithubCreated, arg.GithubUpdated, arg.LastSyncedAt,
	)
	return scanRepository(row)
}

const getRepositoryByGithubID = `
SELECT` + repositoryColumns + `
FROM github_repositories
WHERE github_id = $1`

func (q *Queries) GetRepositoryByGithubID(ctx context.Context, githubID int64) (model.Repository, error) {
	return scanRepository(q.db.QueryRow(ctx, getRepositoryByGithubID, githubID))
}

const listRepositories = `
SELECT` + repositoryColumns + `
FROM github_repositories
ORDER BY stargazers_count DESC, pushed_at DESC NULLS LAST
LIMIT $1`

func (q *Queries) ListRepositories(ctx context.Context, limit int32) ([]model.Repository, error) {
	rows, err := q.db.Query(ctx, listRepositories, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRepositories(rows)
}

// ListRepositoriesByLanguageParams filters the repository listing by one
// language from the byte breakdown.
type ListRepositoriesByLanguageParams struct {
	Language string
	Limit    int32
}

const listRepositoriesByLanguage = `
SELECT` + qualifiedRepositoryColumns + `
FROM github_repositories r
JOIN github_repository_languages l ON l.repository_id = r.id
WHERE l.language = $1
ORDER BY r.stargazers_count DESC, r.pushed_at DESC NULLS LAST
LIMIT $2`

const qualifiedRepositoryColumns = `
	r.id, r.github_id, r.name, r.full_name, r.description, r.html_url,
	r.homepage, r.clone_url, r.ssh_url, r.language, r.stargazers_count,
	r.watchers_count, r.forks_count, r.size, r.default_branch, r.topics,
	r.is_fork, r.is_private, r.has_issues, r.has_projects, r.has_wiki,
	r.archived, r.disabled, r.pushed_at, r.created_at_github,
	r.updated_at_github, r.fetched_at, r.last_synced_at`

func (q *Queries) ListRepositoriesByLanguage(ctx context.Context, arg ListRepositoriesByLanguageParams) ([]model.Repository, error) {
	rows, err := q.db.Query(ctx, listRepositoriesByLanguage, arg.Language, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRepositories(rows)
}

const countRepositories = `SELECT count(*) FROM github_repositories`

func (q *Queries) CountRepositories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countRepositories).Scan(&n)
	return n, err
}

func collectRepositories(rows pgx.Rows) ([]model.Repository, error) {
	var repos []model.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}
