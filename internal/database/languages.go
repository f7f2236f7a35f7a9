// internal/database/languages.go
package database

import (
	"context"

	"portfolio-sync/internal/model"
)

const deleteRepositoryLanguages = `
DELETE FROM github_repository_languages WHERE repository_id = $1`

// DeleteRepositoryLanguages clears a repository's language breakdown before
// the fresh set is inserted.
func (q *Queries) DeleteRepositoryLanguages(ctx context.Context, repositoryID int64) error {
	_, err := q.db.Exec(ctx, deleteRepositoryLanguages, repositoryID)
	return err
}

// InsertRepositoryLanguageParams is one language entry for a repository.
type InsertRepositoryLanguageParams struct {
	RepositoryID int64
	Language     string
	BytesCount   int64
	Percentage   float64
}

const insertRepositoryLanguage = `
INSERT INTO github_repository_languages (repository_id, language, bytes_count, percentage)
VALUES ($1, $2, $3, $4)`

func (q *Queries) InsertRepositoryLanguage(ctx context.Context, arg InsertRepositoryLanguageParams) error {
	_, err := q.db.Exec(ctx, insertRepositoryLanguage,
		arg.RepositoryID, arg.Language, arg.BytesCount, arg.Percentage)
	return err
}

const listRepositoryLanguages = `
SELECT id, repository_id, language, bytes_count, percentage
FROM github_repository_languages
WHERE repository_id = $1
ORDER BY bytes_count DESC`

func (q *Queries) ListRepositoryLanguages(ctx context.Context, repositoryID int64) ([]model.RepositoryLanguage, error) {
	rows, err := q.db.Query(ctx, listRepositoryLanguages, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var langs []model.RepositoryLanguage
	for rows.Next() {
		var l model.RepositoryLanguage
		if err := rows.Scan(&l.ID, &l.RepositoryID, &l.Language, &l.BytesCount, &l.Percentage); err != nil {
			return nil, err
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

const listLanguageStats = `
SELECT l.language, count(r.id) AS repository_count, sum(l.bytes_count) AS total_bytes
FROM github_repository_languages l
JOIN github_repositories r ON r.id = l.repository_id
GROUP BY l.language
ORDER BY count(r.id) DESC`

// ListLanguageStats aggregates the breakdown across all cached repositories.
func (q *Queries) ListLanguageStats(ctx context.Context) ([]model.LanguageStat, error) {
	rows, err := q.db.Query(ctx, listLanguageStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.LanguageStat
	for rows.Next() {
		var s model.LanguageStat
		if err := rows.Scan(&s.Language, &s.RepositoryCount, &s.TotalBytes); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
