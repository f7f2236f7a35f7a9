// internal/database/synclogs.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"portfolio-sync/internal/model"
)

const syncLogColumns = `
	id, account, status, repositories_synced, error_message, started_at, completed_at`

func scanSyncLog(row pgx.Row) (model.SyncLog, error) {
	var l model.SyncLog
	err := row.Scan(&l.ID, &l.Account, &l.Status, &l.RepositoriesSynced,
		&l.ErrorMessage, &l.StartedAt, &l.CompletedAt)
	return l, err
}

// CreateSyncLogParams opens a sync log in the running state.
type CreateSyncLogParams struct {
	Account   string
	StartedAt time.Time
}

const createSyncLog = `
INSERT INTO github_sync_logs (account, status, repositories_synced, started_at)
VALUES ($1, 'running', 0, $2)
RETURNING` + syncLogColumns

func (q *Queries) CreateSyncLog(ctx context.Context, arg CreateSyncLogParams) (model.SyncLog, error) {
	return scanSyncLog(q.db.QueryRow(ctx, createSyncLog, arg.Account, arg.StartedAt))
}

// CompleteSyncLogParams moves a sync log to its terminal state.
type CompleteSyncLogParams struct {
	ID                 int64
	Status             string
	ErrorMessage       *string
	RepositoriesSynced int
	CompletedAt        time.Time
}

const completeSyncLog = `
UPDATE github_sync_logs
SET status = $2, error_message = $3, repositories_synced = $4, completed_at = $5
WHERE id = $1`

func (q *Queries) CompleteSyncLog(ctx context.Context, arg CompleteSyncLogParams) error {
	_, err := q.db.Exec(ctx, completeSyncLog,
		arg.ID, arg.Status, arg.ErrorMessage, arg.RepositoriesSynced, arg.CompletedAt)
	return err
}

const getLastSyncLog = `
SELECT` + syncLogColumns + `
FROM github_sync_logs
WHERE account = $1
ORDER BY started_at DESC
LIMIT 1`

func (q *Queries) GetLastSyncLog(ctx context.Context, account string) (model.SyncLog, error) {
	return scanSyncLog(q.db.QueryRow(ctx, getLastSyncLog, account))
}

// ListSyncLogsParams pages through an account's sync history, newest first.
type ListSyncLogsParams struct {
	Account string
	Limit   int32
}

const listSyncLogs = `
SELECT` + syncLogColumns + `
FROM github_sync_logs
WHERE account = $1
ORDER BY started_at DESC
LIMIT $2`

func (q *Queries) ListSyncLogs(ctx context.Context, arg ListSyncLogsParams) ([]model.SyncLog, error) {
	rows, err := q.db.Query(ctx, listSyncLogs, arg.Account, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.SyncLog
	for rows.Next() {
		l, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
