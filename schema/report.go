package schema

import "time"

// DateLayout is the layout of aggregation dates.
const DateLayout = "2006-01-02"

// Counters holds the additive per-bucket activity counts.
type Counters struct {
	CommitCount   int `json:"commit_count"`
	LinesAdded    int `json:"lines_added"`
	LinesDeleted  int `json:"lines_deleted"`
	FilesModified int `json:"files_modified"`
	PRsCreated    int `json:"prs_created"`
	PRsMerged     int `json:"prs_merged"`
	IssuesCreated int `json:"issues_created"`
	IssuesClosed  int `json:"issues_closed"`
	IssueComments int `json:"issue_comments"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.CommitCount += other.CommitCount
	c.LinesAdded += other.LinesAdded
	c.LinesDeleted += other.LinesDeleted
	c.FilesModified += other.FilesModified
	c.PRsCreated += other.PRsCreated
	c.PRsMerged += other.PRsMerged
	c.IssuesCreated += other.IssuesCreated
	c.IssuesClosed += other.IssuesClosed
	c.IssueComments += other.IssueComments
}

// IsZero reports whether no activity was counted.
func (c Counters) IsZero() bool {
	return c == Counters{}
}

// TotalLines returns added plus deleted lines.
func (c Counters) TotalLines() int {
	return c.LinesAdded + c.LinesDeleted
}

// DailyUserRecord is the activity of one user on one UTC date.
type DailyUserRecord struct {
	Date string `json:"date"`
	User string `json:"user"`
	Counters
	EstimatedHours float64 `json:"estimated_hours"`
	SessionHours   float64 `json:"session_hours,omitempty"`
}

// UserSummary is the activity of one user across all dates.
type UserSummary struct {
	User string `json:"user"`
	Counters
	ActiveDays     int     `json:"active_days"`
	EstimatedHours float64 `json:"estimated_hours"`
	SessionHours   float64 `json:"session_hours,omitempty"`
}

// DailySummary is the activity of all users on one UTC date.
type DailySummary struct {
	Date string `json:"date"`
	Counters
	ActiveUsers    int     `json:"active_users"`
	EstimatedHours float64 `json:"estimated_hours"`
}

// TimelineRow is one entry of a chronological activity listing.
type TimelineRow struct {
	Timestamp  time.Time `json:"timestamp"`
	User       string    `json:"user"`
	Repository string    `json:"repository"`
	Source     Source    `json:"source"`
	Kind       Kind      `json:"kind"`
	Reference  string    `json:"reference,omitempty"`
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
}

// Warning records a unit of work that was skipped and why.
type Warning struct {
	Scope  WarningScope `json:"scope"`
	Target string       `json:"target"`
	Reason string       `json:"reason"`
}

// Report is the complete in-memory result of one pipeline run.
type Report struct {
	RunID          string            `json:"run_id"`
	StartedAt      time.Time         `json:"started_at"`
	Duration       time.Duration     `json:"duration_ns"`
	Sources        []ScanSource      `json:"sources"`
	Window         Window            `json:"-"`
	EventCount     int               `json:"event_count"`
	DailyRecords   []DailyUserRecord `json:"daily_user_records"`
	UserSummaries  []UserSummary     `json:"user_summaries"`
	DailySummaries []DailySummary    `json:"daily_summaries"`
	PRTimeline     []TimelineRow     `json:"pr_timeline"`
	IssueTimeline  []TimelineRow     `json:"issue_timeline"`
	UserTimeline   []TimelineRow     `json:"user_timeline"`
	Warnings       []Warning         `json:"warnings"`
}
