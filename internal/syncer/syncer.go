// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/jackc/pgx/v5"

	"portfolio-sync/internal/database"
	"portfolio-sync/internal/githubapi"
	"portfolio-sync/internal/model"
)

// How many sample errors the final sync message carries.
const maxSampleErrors = 3

// GithubClient is the slice of the API client the engine needs.
type GithubClient interface {
	Validate(ctx context.Context) error
	ListRepositories(ctx context.Context, account string) ([]*github.Repository, error)
	Languages(ctx context.Context, owner, repo string) map[string]int
}

// Store is the persistence surface the engine needs: the full query set
// plus transactional execution for the per-repository unit.
type Store interface {
	database.Querier
	ExecTx(ctx context.Context, fn func(database.Querier) error) error
}

// Syncer orchestrates one full synchronization pass for an account: fetch
// all repositories, reconcile each against the cache, and record the run in
// a sync log. It is not re-entrant; concurrent passes are refused.
type Syncer struct {
	store    Store
	client   GithubClient
	logger   *slog.Logger
	now      func() time.Time
	inFlight atomic.Bool
}

// NewSyncer creates a Syncer.
func NewSyncer(store Store, client GithubClient, logger *slog.Logger) *Syncer {
	return &Syncer{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Busy reports whether a sync pass is currently in flight.
func (s *Syncer) Busy() bool {
	return s.inFlight.Load()
}

// SyncAccount runs one sync pass for the account. It never returns an
// error: the outcome is the success flag, a human-readable message and the
// number of repositories synced, with the full detail in the sync log row.
func (s *Syncer) SyncAccount(ctx context.Context, account string) (bool, string, int) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false, "a sync pass is already in progress", 0
	}
	defer s.inFlight.Store(false)

	logger := s.logger.With("account", account)

	// The running row is committed before any network call so the attempt
	// is observable even if the process dies mid-pass.
	syncLog, err := s.store.CreateSyncLog(ctx, database.CreateSyncLogParams{
		Account:   account,
		StartedAt: s.now().UTC(),
	})
	if err != nil {
		msg := fmt.Sprintf("failed to record sync start: %v", err)
		logger.Error("Sync aborted", "error", err)
		return false, msg, 0
	}

	logger.Info("Starting GitHub sync")

	if err := s.client.Validate(ctx); err != nil {
		msg := fmt.Sprintf("GitHub connection validation failed: %v", err)
		s.finishSyncLog(ctx, syncLog.ID, model.StatusError, &msg, 0)
		logger.Error("Sync failed", "error", err)
		return false, msg, 0
	}

	repos, err := s.client.ListRepositories(ctx, account)
	if err != nil {
		msg := fmt.Sprintf("GitHub API error: %v", err)
		s.finishSyncLog(ctx, syncLog.ID, model.StatusError, &msg, 0)
		logger.Error("Sync failed", "error", err, "rate_limited", githubapi.IsRateLimited(err))
		return false, msg, 0
	}

	if len(repos) == 0 {
		s.finishSyncLog(ctx, syncLog.ID, model.StatusSuccess, nil, 0)
		msg := fmt.Sprintf("no repositories found for account %s", account)
		logger.Info("Sync completed", "repositories", 0)
		return true, msg, 0
	}

	// Repositories are reconciled independently and sequentially: each one
	// in its own transaction, and one failure never blocks the rest.
	var (
		synced   int
		syncErrs []string
	)
	for _, ghRepo := range repos {
		if err := s.reconcileRepository(ctx, ghRepo); err != nil {
			errMsg := fmt.Sprintf("error syncing repository %s: %v", ghRepo.GetName(), err)
			syncErrs = append(syncErrs, errMsg)
			logger.Error("Repository sync failed", "repo", ghRepo.GetName(), "error", err)
			continue
		}
		synced++
	}

	status, message := summarize(synced, len(repos), syncErrs)
	var errMsg *string
	if len(syncErrs) > 0 {
		errMsg = &message
	}
	s.finishSyncLog(ctx, syncLog.ID, status, errMsg, synced)

	logger.Info("Sync completed", "status", status, "repositories", synced, "errors", len(syncErrs))
	return status != model.StatusError, message, synced
}

// reconcileRepository upserts one repository and replaces its language
// breakdown as a single transactional unit.
func (s *Syncer) reconcileRepository(ctx context.Context, ghRepo *github.Repository) error {
	owner := ghRepo.GetOwner().GetLogin()
	languages := s.client.Languages(ctx, owner, ghRepo.GetName())

	return s.store.ExecTx(ctx, func(q database.Querier) error {
		return s.writeRepository(ctx, q, ghRepo, languages)
	})
}

// writeRepository performs the reconciliation against the given querier,
// which the caller is expected to bind to a transaction.
func (s *Syncer) writeRepository(ctx context.Context, q database.Querier, ghRepo *github.Repository, languages map[string]int) error {
	repo, err := q.UpsertRepository(ctx, upsertParams(ghRepo, s.now().UTC()))
	if err != nil {
		return fmt.Errorf("upsert repository: %w", err)
	}

	// An empty language map means the fetch failed or the repository has no
	// code; either way the previous breakdown is kept.
	if len(languages) == 0 {
		return nil
	}

	if err := q.DeleteRepositoryLanguages(ctx, repo.ID); err != nil {
		return fmt.Errorf("clear languages: %w", err)
	}

	var total int64
	for _, bytes := range languages {
		total += int64(bytes)
	}

	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		bytes := int64(languages[name])
		var percentage float64
		if total > 0 {
			percentage = float64(bytes) / float64(total) * 100
		}
		err := q.InsertRepositoryLanguage(ctx, database.InsertRepositoryLanguageParams{
			RepositoryID: repo.ID,
			Language:     name,
			BytesCount:   bytes,
			Percentage:   percentage,
		})
		if err != nil {
			return fmt.Errorf("insert language %s: %w", name, err)
		}
	}
	return nil
}

// finishSyncLog moves the sync log to its terminal state. The write runs
// detached from the pass context: a cancelled pass (shutdown, disconnected
// trigger request) must still land its terminal row, or the log stays
// `running` forever. A failure here is logged but not surfaced; the pass
// outcome already stands.
func (s *Syncer) finishSyncLog(ctx context.Context, id int64, status string, errMsg *string, synced int) {
	ctx = context.WithoutCancel(ctx)
	err := s.store.CompleteSyncLog(ctx, database.CompleteSyncLogParams{
		ID:                 id,
		Status:             status,
		ErrorMessage:       errMsg,
		RepositoriesSynced: synced,
		CompletedAt:        s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("Failed to finalize sync log", "sync_log_id", id, "error", err)
	}
}

// summarize derives the terminal status and message from the pass counters.
func summarize(synced, total int, syncErrs []string) (string, string) {
	switch {
	case len(syncErrs) > 0 && synced == 0:
		samples := syncErrs
		if len(samples) > maxSampleErrors {
			samples = samples[:maxSampleErrors]
		}
		return model.StatusError, fmt.Sprintf("failed to sync any repositories. Errors: %s", strings.Join(samples, "; "))
	case len(syncErrs) > 0:
		return model.StatusPartial, fmt.Sprintf("synced %d/%d repositories, %d failed", synced, total, len(syncErrs))
	default:
		return model.StatusSuccess, fmt.Sprintf("successfully synced %d repositories", synced)
	}
}

// upsertParams maps the raw GitHub payload onto the cache row.
func upsertParams(r *github.Repository, now time.Time) database.UpsertRepositoryParams {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return database.UpsertRepositoryParams{
		GithubID:      r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.Description,
		HTMLURL:       r.GetHTMLURL(),
		Homepage:      r.Homepage,
		CloneURL:      r.CloneURL,
		SSHURL:        r.SSHURL,
		Language:      r.Language,
		StarsCount:    r.GetStargazersCount(),
		WatchersCount: r.GetWatchersCount(),
		ForksCount:    r.GetForksCount(),
		Size:          r.GetSize(),
		DefaultBranch: defaultBranch(r),
		Topics:        topics,
		IsFork:        r.GetFork(),
		IsPrivate:     r.GetPrivate(),
		HasIssues:     boolOr(r.HasIssues, true),
		HasProjects:   boolOr(r.HasProjects, true),
		HasWiki:       boolOr(r.HasWiki, true),
		Archived:      r.GetArchived(),
		Disabled:      r.GetDisabled(),
		PushedAt:      optTime(r.PushedAt),
		GithubCreated: optTime(r.CreatedAt),
		GithubUpdated: optTime(r.UpdatedAt),
		LastSyncedAt:  now,
	}
}

func defaultBranch(r *github.Repository) string {
	if b := r.GetDefaultBranch(); b != "" {
		return b
	}
	return "main"
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// optTime lifts an optional GitHub timestamp to a nullable UTC time.
func optTime(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

// RepositoriesByLanguage returns cached repositories, optionally filtered
// by one language from the byte breakdown, ordered by stars then most
// recent push.
func (s *Syncer) RepositoriesByLanguage(ctx context.Context, language string, limit int32) ([]model.Repository, error) {
	if language == "" {
		return s.store.ListRepositories(ctx, limit)
	}
	return s.store.ListRepositoriesByLanguage(ctx, database.ListRepositoriesByLanguageParams{
		Language: language,
		Limit:    limit,
	})
}

// AllLanguages aggregates the language breakdown across all cached
// repositories, most common language first.
func (s *Syncer) AllLanguages(ctx context.Context) ([]model.LanguageStat, error) {
	return s.store.ListLanguageStats(ctx)
}

// LastSyncLog returns the most recent sync log for the account, or nil when
// the account has never been synced.
func (s *Syncer) LastSyncLog(ctx context.Context, account string) (*model.SyncLog, error) {
	syncLog, err := s.store.GetLastSyncLog(ctx, account)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &syncLog, nil
}

// LastSyncStartedAt reports when the most recent sync pass for the account
// started. It backs the scheduler's recency guard.
func (s *Syncer) LastSyncStartedAt(ctx context.Context, account string) (time.Time, bool, error) {
	syncLog, err := s.LastSyncLog(ctx, account)
	if err != nil {
		return time.Time{}, false, err
	}
	if syncLog == nil {
		return time.Time{}, false, nil
	}
	return syncLog.StartedAt, true, nil
}

// SyncHistory returns the account's most recent sync logs, newest first.
func (s *Syncer) SyncHistory(ctx context.Context, account string, limit int32) ([]model.SyncLog, error) {
	return s.store.ListSyncLogs(ctx, database.ListSyncLogsParams{Account: account, Limit: limit})
}
