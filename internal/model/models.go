// internal/model/models.go
package model

import "time"

// Sync log statuses. A log is created as StatusRunning and moved to exactly
// one terminal status when the pass ends.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Account is the identity of the token owner as reported by GitHub.
type Account struct {
	ID    int64
	Login string
	Name  *string
	Email *string
}

// Repository is one cached GitHub repository, keyed by its external GithubID.
type Repository struct {
	ID            int64
	GithubID      int64 `json:"github_id"`
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
	FetchedAt     time.Time
	LastSyncedAt  time.Time
}

// RepositoryLanguage is one language entry of a repository's byte breakdown.
// The set for a repository is replaced wholesale on every sync.
type RepositoryLanguage struct {
	ID           int64
	RepositoryID int64
	Language     string
	BytesCount   int64
	Percentage   float64
}

// LanguageStat is the per-language aggregate across all cached repositories.
type LanguageStat struct {
	Language        string `json:"language"`
	RepositoryCount int64  `json:"repository_count"`
	TotalBytes      int64  `json:"total_bytes"`
}

// SyncLog is the durable record of one sync pass.
type SyncLog struct {
	ID                 int64
	Account            string
	Status             string
	RepositoriesSynced int
	ErrorMessage       *string
	StartedAt          time.Time
	CompletedAt        *time.Time
}

// Duration returns the elapsed time of a completed pass.
func (l *SyncLog) Duration() (time.Duration, bool) {
	if l.CompletedAt == nil {
		return 0, false
	}
	return l.CompletedAt.Sub(l.StartedAt), true
}

// Credential is one stored access token for an account. At most one row per
// account has IsActive set; superseded rows are kept deactivated for audit.
type Credential struct {
	ID             int64
	Account        string
	EncryptedToken string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastUsedAt     *time.Time
}
