// Package agg folds normalized events into per-day, per-user activity tables.
package agg

import (
	"cmp"
	"slices"
	"time"

	"github.com/huangsam/hourglass/schema"
)

// Heuristic weights of the hour estimate.
const (
	HoursPerCommit = 0.5
	LinesPerHour   = 30.0
)

// Session clustering of commit timestamps.
const (
	SessionGap      = 2 * time.Hour
	SessionMinHours = 0.5
	SessionMaxHours = 8.0
	sessionPadding  = 0.5
)

// EstimateHours applies the frozen heuristic to a set of counters.
func EstimateHours(c schema.Counters) float64 {
	return float64(c.CommitCount)*HoursPerCommit + float64(c.LinesAdded+c.LinesDeleted)/LinesPerHour
}

// SessionHours clusters commit times into sessions separated by more than
// SessionGap. Each session counts its duration plus half an hour, clamped to
// [SessionMinHours, SessionMaxHours].
func SessionHours(times []time.Time) float64 {
	if len(times) == 0 {
		return 0
	}
	sorted := slices.Clone(times)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	total := 0.0
	start, end := sorted[0], sorted[0]
	for _, t := range sorted[1:] {
		if t.Sub(end) <= SessionGap {
			end = t
			continue
		}
		total += sessionLength(start, end)
		start, end = t, t
	}
	return total + sessionLength(start, end)
}

func sessionLength(start, end time.Time) float64 {
	h := end.Sub(start).Hours() + sessionPadding
	return min(max(h, SessionMinHours), SessionMaxHours)
}

// Options controls what the aggregator keeps.
type Options struct {
	Window schema.Window

	// SessionHours computes the session estimate next to the heuristic.
	SessionHours bool

	// IncludeUnattributed keeps events with no user in the user timeline.
	IncludeUnattributed bool
}

// Result holds the aggregate tables and timelines of a set of events.
type Result struct {
	Daily         []schema.DailyUserRecord
	Users         []schema.UserSummary
	Days          []schema.DailySummary
	PRTimeline    []schema.TimelineRow
	IssueTimeline []schema.TimelineRow
	UserTimeline  []schema.TimelineRow
	Events        int // events that fell inside the window
}

type bucketKey struct {
	date string
	user string
}

type pathKey struct {
	repo string
	path string
}

type bucket struct {
	counters schema.Counters
	paths    map[pathKey]struct{}
	commits  []time.Time
}

// Aggregator accumulates events incrementally. It is not safe for concurrent
// use; give each worker its own and Merge them.
type Aggregator struct {
	opts     Options
	buckets  map[bucketKey]*bucket
	prs      []schema.TimelineRow
	issues   []schema.TimelineRow
	timeline []schema.TimelineRow
	events   int
}

// New returns an empty aggregator.
func New(opts Options) *Aggregator {
	return &Aggregator{opts: opts, buckets: make(map[bucketKey]*bucket)}
}

// Aggregate is a one-shot helper over New, Add and Result.
func Aggregate(events []schema.Event, opts Options) Result {
	a := New(opts)
	a.Add(events...)
	return a.Result()
}

// Add folds events into the aggregator. Events without a source or timestamp
// and events outside the window are ignored.
func (a *Aggregator) Add(events ...schema.Event) {
	for _, e := range events {
		if e.Validate() != nil || !a.opts.Window.Contains(e.Timestamp) {
			continue
		}
		a.events++
		a.addTimelines(e)

		if !e.Attributed() {
			continue
		}
		key := bucketKey{date: schema.DateOf(e.Timestamp).Format(schema.DateLayout), user: e.User}
		b := a.bucket(key)
		b.counters.Add(countersFor(e))
		if e.Kind == schema.CommittedKind && e.IsCommit() {
			b.commits = append(b.commits, e.Timestamp.UTC())
		}
		if e.Path != "" {
			b.paths[pathKey{repo: e.Repository, path: e.Path}] = struct{}{}
		}
	}
}

// Merge folds the state of other into a. other is left untouched.
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil {
		return
	}
	for key, ob := range other.buckets {
		b := a.bucket(key)
		b.counters.Add(ob.counters)
		b.commits = append(b.commits, ob.commits...)
		for p := range ob.paths {
			b.paths[p] = struct{}{}
		}
	}
	a.prs = append(a.prs, other.prs...)
	a.issues = append(a.issues, other.issues...)
	a.timeline = append(a.timeline, other.timeline...)
	a.events += other.events
}

func (a *Aggregator) bucket(key bucketKey) *bucket {
	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{paths: make(map[pathKey]struct{})}
		a.buckets[key] = b
	}
	return b
}

func (a *Aggregator) addTimelines(e schema.Event) {
	row := timelineRow(e)
	switch e.Source {
	case schema.APIPullRequest:
		a.prs = append(a.prs, row)
	case schema.APIIssue, schema.APIComment:
		a.issues = append(a.issues, row)
	}
	if e.Attributed() || a.opts.IncludeUnattributed {
		a.timeline = append(a.timeline, row)
	}
}

// countersFor maps one event onto the counters it contributes. Paths are
// tracked separately since files modified is a distinct count.
func countersFor(e schema.Event) schema.Counters {
	var c schema.Counters
	switch e.Kind {
	case schema.CommittedKind:
		if e.IsCommit() {
			c.CommitCount = 1
			c.LinesAdded = e.LinesAdded
			c.LinesDeleted = e.LinesDeleted
		}
	case schema.CreatedKind:
		switch e.Source {
		case schema.APIPullRequest:
			c.PRsCreated = 1
		case schema.APIIssue:
			c.IssuesCreated = 1
		}
	case schema.MergedKind:
		if e.Source == schema.APIPullRequest {
			c.PRsMerged = 1
		}
	case schema.ClosedKind:
		if e.Source == schema.APIIssue {
			c.IssuesClosed = 1
		}
	case schema.CommentedKind:
		c.IssueComments = 1
	}
	return c
}

// Result builds the sparse sorted tables. It can be called more than once.
func (a *Aggregator) Result() Result {
	res := Result{Events: a.events}

	users := make(map[string]*schema.UserSummary)
	days := make(map[string]*schema.DailySummary)

	for key, b := range a.buckets {
		counters := b.counters
		counters.FilesModified = len(b.paths)
		if counters.IsZero() {
			continue
		}
		rec := schema.DailyUserRecord{
			Date:           key.date,
			User:           key.user,
			Counters:       counters,
			EstimatedHours: EstimateHours(counters),
		}
		if a.opts.SessionHours {
			rec.SessionHours = SessionHours(b.commits)
		}
		res.Daily = append(res.Daily, rec)

		u, ok := users[key.user]
		if !ok {
			u = &schema.UserSummary{User: key.user}
			users[key.user] = u
		}
		u.Counters.Add(counters)
		u.ActiveDays++

		d, ok := days[key.date]
		if !ok {
			d = &schema.DailySummary{Date: key.date}
			days[key.date] = d
		}
		d.Counters.Add(counters)
		d.ActiveUsers++
	}

	slices.SortFunc(res.Daily, func(x, y schema.DailyUserRecord) int {
		return cmp.Or(cmp.Compare(y.Date, x.Date), cmp.Compare(x.User, y.User))
	})
	// Float sums follow the sorted order so merges in any order agree.
	for _, rec := range res.Daily {
		users[rec.User].SessionHours += rec.SessionHours
	}

	for _, u := range users {
		u.EstimatedHours = EstimateHours(u.Counters)
		res.Users = append(res.Users, *u)
	}
	for _, d := range days {
		d.EstimatedHours = EstimateHours(d.Counters)
		res.Days = append(res.Days, *d)
	}

	slices.SortFunc(res.Users, func(x, y schema.UserSummary) int {
		return cmp.Or(cmp.Compare(y.EstimatedHours, x.EstimatedHours), cmp.Compare(x.User, y.User))
	})
	slices.SortFunc(res.Days, func(x, y schema.DailySummary) int {
		return cmp.Compare(x.Date, y.Date)
	})

	res.PRTimeline = sortedTimeline(a.prs)
	res.IssueTimeline = sortedTimeline(a.issues)
	res.UserTimeline = sortedTimeline(a.timeline)
	return res
}

func timelineRow(e schema.Event) schema.TimelineRow {
	return schema.TimelineRow{
		Timestamp:  e.Timestamp.UTC(),
		User:       e.User,
		Repository: e.Repository,
		Source:     e.Source,
		Kind:       e.Kind,
		Reference:  e.Reference,
		Title:      e.Title,
		URL:        e.URL,
	}
}

// sortedTimeline orders rows newest first. Ties fall back on every other
// field so the order never depends on arrival.
func sortedTimeline(rows []schema.TimelineRow) []schema.TimelineRow {
	out := slices.Clone(rows)
	slices.SortFunc(out, func(x, y schema.TimelineRow) int {
		return cmp.Or(
			y.Timestamp.Compare(x.Timestamp),
			cmp.Compare(x.User, y.User),
			cmp.Compare(x.Repository, y.Repository),
			cmp.Compare(x.Source, y.Source),
			cmp.Compare(x.Kind, y.Kind),
			cmp.Compare(x.Reference, y.Reference),
			cmp.Compare(x.Title, y.Title),
			cmp.Compare(x.URL, y.URL),
		)
	})
	return out
}
