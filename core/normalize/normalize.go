// Package normalize maps source specific records onto the unified event schema.
// Every function is total: one record in, one event out. Filtering by date or
// repository happens in the scanners before these are called.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/hourglass/internal/ghapi"
	"github.com/huangsam/hourglass/schema"
	"golang.org/x/text/cases"
)

// UnknownUser is used when an API or git record names nobody.
const UnknownUser = "Unknown"

var folder = cases.Fold()

// FoldUser returns the case-folded form of a user name for comparisons.
func FoldUser(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// CommitAuthor returns the login of the linked account, else the git author
// name, else UnknownUser.
func CommitAuthor(c ghapi.Commit) string {
	if login := ghapi.LoginOf(c.Author); login != "" {
		return login
	}
	if c.Commit.Author != nil && strings.TrimSpace(c.Commit.Author.Name) != "" {
		return c.Commit.Author.Name
	}
	return UnknownUser
}

// CommitTime returns the author date, else the committer date.
func CommitTime(c ghapi.Commit) (time.Time, bool) {
	if c.Commit.Author != nil && c.Commit.Author.Date != nil {
		return c.Commit.Author.Date.UTC(), true
	}
	if c.Commit.Committer != nil && c.Commit.Committer.Date != nil {
		return c.Commit.Committer.Date.UTC(), true
	}
	return time.Time{}, false
}

// FromAPICommit maps a listed commit and its stats onto a committed event.
func FromAPICommit(repo string, c ghapi.Commit, stats ghapi.CommitStats) schema.Event {
	ts, _ := CommitTime(c)
	return schema.Event{
		Source:       schema.APICommit,
		Repository:   repo,
		User:         CommitAuthor(c),
		Timestamp:    ts,
		Kind:         schema.CommittedKind,
		LinesAdded:   max(stats.Additions, 0),
		LinesDeleted: max(stats.Deletions, 0),
		Reference:    c.SHA,
		URL:          c.HTMLURL,
		Title:        firstLine(c.Commit.Message),
	}
}

// FromAPICommitFile maps one changed file of a commit onto a modified event.
func FromAPICommitFile(repo string, c ghapi.Commit, f ghapi.CommitFile) schema.Event {
	ts, _ := CommitTime(c)
	return schema.Event{
		Source:     schema.APICommit,
		Repository: repo,
		User:       CommitAuthor(c),
		Timestamp:  ts,
		Kind:       schema.ModifiedKind,
		Path:       f.Filename,
		Reference:  c.SHA,
		URL:        c.HTMLURL,
	}
}

// FromAPIPull maps one lifecycle timestamp of a pull request onto an event.
func FromAPIPull(repo string, p ghapi.Pull, kind schema.Kind, at time.Time) schema.Event {
	return schema.Event{
		Source:     schema.APIPullRequest,
		Repository: repo,
		User:       orUnknown(ghapi.LoginOf(p.User)),
		Timestamp:  at.UTC(),
		Kind:       kind,
		Reference:  numberRef(p.Number),
		URL:        p.HTMLURL,
		Title:      p.Title,
	}
}

// FromAPIPullComment maps a conversation or inline comment on a pull request.
func FromAPIPullComment(repo string, p ghapi.Pull, c ghapi.Comment) schema.Event {
	return schema.Event{
		Source:     schema.APIPullRequest,
		Repository: repo,
		User:       orUnknown(ghapi.LoginOf(c.User)),
		Timestamp:  timeOf(c.CreatedAt),
		Kind:       schema.CommentedKind,
		Reference:  numberRef(p.Number),
		URL:        firstNonEmpty(c.HTMLURL, p.HTMLURL),
		Title:      p.Title,
	}
}

// FromAPIReview maps a submitted review of a pull request.
func FromAPIReview(repo string, p ghapi.Pull, r ghapi.Review) schema.Event {
	return schema.Event{
		Source:     schema.APIPullRequest,
		Repository: repo,
		User:       orUnknown(ghapi.LoginOf(r.User)),
		Timestamp:  timeOf(r.SubmittedAt),
		Kind:       schema.ReviewedKind,
		Reference:  numberRef(p.Number),
		URL:        firstNonEmpty(r.HTMLURL, p.HTMLURL),
		Title:      p.Title,
	}
}

// FromAPIIssue maps one lifecycle timestamp of an issue onto an event.
func FromAPIIssue(repo string, i ghapi.Issue, kind schema.Kind, at time.Time) schema.Event {
	return schema.Event{
		Source:     schema.APIIssue,
		Repository: repo,
		User:       orUnknown(ghapi.LoginOf(i.User)),
		Timestamp:  at.UTC(),
		Kind:       kind,
		Reference:  numberRef(i.Number),
		URL:        i.HTMLURL,
		Title:      i.Title,
	}
}

// FromAPIComment maps a comment on an issue.
func FromAPIComment(repo string, i ghapi.Issue, c ghapi.Comment) schema.Event {
	return schema.Event{
		Source:     schema.APIComment,
		Repository: repo,
		User:       orUnknown(ghapi.LoginOf(c.User)),
		Timestamp:  timeOf(c.CreatedAt),
		Kind:       schema.CommentedKind,
		Reference:  numberRef(i.Number),
		URL:        firstNonEmpty(c.HTMLURL, i.HTMLURL),
		Title:      i.Title,
	}
}

// FromLocalCommit maps a parsed local commit.
func FromLocalCommit(repo string, rec schema.LocalCommitRecord) schema.Event {
	return schema.Event{
		Source:       schema.LocalCommit,
		Repository:   repo,
		User:         orUnknown(firstNonEmpty(rec.AttributedTo, rec.Author)),
		Timestamp:    rec.Date.UTC(),
		Kind:         schema.CommittedKind,
		LinesAdded:   max(rec.Additions, 0),
		LinesDeleted: max(rec.Deletions, 0),
		Reference:    rec.Hash,
		Title:        rec.Subject,
	}
}

// FromLocalFileChange maps one path touched by a local commit.
func FromLocalFileChange(repo string, rec schema.FileChangeRecord) schema.Event {
	return schema.Event{
		Source:     schema.LocalFileMtime,
		Repository: repo,
		User:       orUnknown(firstNonEmpty(rec.AttributedTo, rec.Author)),
		Timestamp:  rec.Date.UTC(),
		Kind:       schema.ModifiedKind,
		Path:       rec.Path,
		Reference:  rec.Commit,
	}
}

// FromSnapshotFile maps a file seen in a snapshot. An attributed file takes
// the commit author and time, otherwise the raw mtime with no user.
func FromSnapshotFile(repo string, rec schema.SnapshotFileRecord) schema.Event {
	ev := schema.Event{
		Source:     schema.SnapshotFile,
		Repository: repo,
		Timestamp:  rec.ModTime.UTC(),
		Kind:       schema.ModifiedKind,
		Path:       rec.RelPath,
		Reference:  rec.Snapshot,
	}
	if rec.Commit != "" {
		ev.User = rec.Author
		ev.Timestamp = rec.CommitTime.UTC()
		ev.Reference = rec.Snapshot + "@" + shortHash(rec.Commit)
	}
	return ev
}

// FromFSFile maps a file seen by the native filesystem scanner.
func FromFSFile(rec schema.FSFileRecord) schema.Event {
	return schema.Event{
		Source:     schema.FSFile,
		Repository: rec.Root,
		User:       rec.Owner,
		Timestamp:  rec.ModTime.UTC(),
		Kind:       schema.ModifiedKind,
		Path:       rec.RelPath,
	}
}

// WithDefaultUser attributes events that carry no user to user. An empty
// user leaves the events untouched.
func WithDefaultUser(events []schema.Event, user string) []schema.Event {
	if user == "" {
		return events
	}
	for i := range events {
		if events[i].User == "" {
			events[i].User = user
		}
	}
	return events
}

func numberRef(n int) string {
	return "#" + strconv.Itoa(n)
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownUser
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
