package agg

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/huangsam/hourglass/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
}

func commit(user string, ts time.Time, added, deleted int, ref string) schema.Event {
	return schema.Event{
		Source:       schema.LocalCommit,
		Repository:   "repo",
		User:         user,
		Timestamp:    ts,
		Kind:         schema.CommittedKind,
		LinesAdded:   added,
		LinesDeleted: deleted,
		Reference:    ref,
	}
}

func touch(user string, ts time.Time, path string) schema.Event {
	return schema.Event{Source: schema.LocalFileMtime, Repository: "repo", User: user, Timestamp: ts, Kind: schema.ModifiedKind, Path: path}
}

func TestEstimateHours(t *testing.T) {
	tests := []struct {
		name     string
		counters schema.Counters
		want     float64
	}{
		{"zero", schema.Counters{}, 0},
		{"commits only", schema.Counters{CommitCount: 4}, 2},
		{"lines only", schema.Counters{LinesAdded: 20, LinesDeleted: 10}, 1},
		{"mixed", schema.Counters{CommitCount: 3, LinesAdded: 10, LinesDeleted: 5}, 2},
		{"not rounded", schema.Counters{CommitCount: 1, LinesAdded: 2}, 0.5 + 2.0/30.0},
		{"other counters ignored", schema.Counters{PRsCreated: 9, IssueComments: 4, FilesModified: 7}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateHours(tt.counters))
		})
	}
}

func TestSessionHours(t *testing.T) {
	tests := []struct {
		name  string
		times []time.Time
		want  float64
	}{
		{"none", nil, 0},
		{"single commit", []time.Time{at(1, 9)}, 0.5},
		{"one session", []time.Time{at(1, 9), at(1, 10), at(1, 11)}, 2.5},
		{"gap splits", []time.Time{at(1, 9), at(1, 12)}, 1.0},
		{"unsorted input", []time.Time{at(1, 11), at(1, 9), at(1, 10)}, 2.5},
		{"clamped", []time.Time{at(1, 0), at(1, 2), at(1, 4), at(1, 6), at(1, 8), at(1, 10)}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SessionHours(tt.times), 1e-9)
		})
	}
}

func TestScenarioSingleUserTwoDays(t *testing.T) {
	events := []schema.Event{
		commit("alice", at(1, 9), 4, 1, "a"),
		commit("alice", at(1, 10), 3, 2, "b"),
		commit("alice", at(1, 11), 3, 2, "c"),
		commit("alice", at(2, 9), 2, 0, "d"),
	}
	res := Aggregate(events, Options{})

	require.Len(t, res.Daily, 2)
	// Newest date first.
	assert.Equal(t, "2024-01-02", res.Daily[0].Date)
	assert.Equal(t, 1, res.Daily[0].CommitCount)
	assert.Equal(t, 0.5+2.0/30.0, res.Daily[0].EstimatedHours)

	first := res.Daily[1]
	assert.Equal(t, "2024-01-01", first.Date)
	assert.Equal(t, 3, first.CommitCount)
	assert.Equal(t, 15, first.TotalLines())
	assert.Equal(t, 2.0, first.EstimatedHours)

	require.Len(t, res.Users, 1)
	assert.Equal(t, 4, res.Users[0].CommitCount)
	assert.Equal(t, 2, res.Users[0].ActiveDays)
	assert.Equal(t, 4, res.Events)
}

func TestScenarioTwoUsersSameDay(t *testing.T) {
	events := []schema.Event{
		commit("alice", at(5, 9), 30, 0, "a"),
		commit("bob", at(5, 14), 0, 60, "b"),
		{Source: schema.APIPullRequest, Repository: "repo", User: "bob", Timestamp: at(5, 15), Kind: schema.CreatedKind, Reference: "#1"},
	}
	res := Aggregate(events, Options{})

	require.Len(t, res.Days, 1)
	day := res.Days[0]
	assert.Equal(t, 2, day.ActiveUsers)

	var sum schema.Counters
	for _, rec := range res.Daily {
		sum.Add(rec.Counters)
	}
	assert.Equal(t, sum, day.Counters)
	assert.Equal(t, 1, day.PRsCreated)
	assert.InDelta(t, res.Daily[0].EstimatedHours+res.Daily[1].EstimatedHours, day.EstimatedHours, 1e-9)
}

func TestCounterMapping(t *testing.T) {
	ts := at(3, 12)
	tests := []struct {
		name  string
		event schema.Event
		want  schema.Counters
	}{
		{"api commit", schema.Event{Source: schema.APICommit, Kind: schema.CommittedKind, LinesAdded: 3, LinesDeleted: 1}, schema.Counters{CommitCount: 1, LinesAdded: 3, LinesDeleted: 1}},
		{"api commit file", schema.Event{Source: schema.APICommit, Kind: schema.ModifiedKind, Path: "a.go"}, schema.Counters{FilesModified: 1}},
		{"pr created", schema.Event{Source: schema.APIPullRequest, Kind: schema.CreatedKind}, schema.Counters{PRsCreated: 1}},
		{"pr merged", schema.Event{Source: schema.APIPullRequest, Kind: schema.MergedKind}, schema.Counters{PRsMerged: 1}},
		{"pr comment", schema.Event{Source: schema.APIPullRequest, Kind: schema.CommentedKind}, schema.Counters{IssueComments: 1}},
		{"issue created", schema.Event{Source: schema.APIIssue, Kind: schema.CreatedKind}, schema.Counters{IssuesCreated: 1}},
		{"issue closed", schema.Event{Source: schema.APIIssue, Kind: schema.ClosedKind}, schema.Counters{IssuesClosed: 1}},
		{"issue comment", schema.Event{Source: schema.APIComment, Kind: schema.CommentedKind}, schema.Counters{IssueComments: 1}},
		{"snapshot file", schema.Event{Source: schema.SnapshotFile, Kind: schema.ModifiedKind, Path: "x"}, schema.Counters{FilesModified: 1}},
		{"fs file", schema.Event{Source: schema.FSFile, Kind: schema.ModifiedKind, Path: "x"}, schema.Counters{FilesModified: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.event
			e.User, e.Timestamp, e.Repository = "alice", ts, "repo"
			res := Aggregate([]schema.Event{e}, Options{})
			require.Len(t, res.Daily, 1)
			assert.Equal(t, tt.want, res.Daily[0].Counters)
		})
	}
}

func TestSparseOutput(t *testing.T) {
	events := []schema.Event{
		{Source: schema.APIPullRequest, Repository: "r", User: "carol", Timestamp: at(2, 1), Kind: schema.ClosedKind, Reference: "#2"},
		{Source: schema.APIPullRequest, Repository: "r", User: "carol", Timestamp: at(2, 2), Kind: schema.ReviewedKind, Reference: "#2"},
	}
	res := Aggregate(events, Options{})
	assert.Empty(t, res.Daily)
	assert.Empty(t, res.Users)
	assert.Empty(t, res.Days)
	assert.Len(t, res.PRTimeline, 2)
}

func TestFilesModifiedIsDistinct(t *testing.T) {
	events := []schema.Event{
		touch("alice", at(1, 1), "a.go"),
		touch("alice", at(1, 2), "a.go"),
		touch("alice", at(1, 3), "b.go"),
		{Source: schema.APICommit, Repository: "repo", User: "alice", Timestamp: at(1, 4), Kind: schema.ModifiedKind, Path: "a.go", Reference: "x"},
		{Source: schema.LocalFileMtime, Repository: "other", User: "alice", Timestamp: at(1, 5), Kind: schema.ModifiedKind, Path: "a.go"},
	}
	res := Aggregate(events, Options{})
	require.Len(t, res.Daily, 1)
	assert.Equal(t, 3, res.Daily[0].FilesModified)
	assert.Zero(t, res.Daily[0].EstimatedHours)
}

func TestWindowAndUnattributed(t *testing.T) {
	window := schema.NewWindow(at(2, 0), at(3, 0))
	events := []schema.Event{
		commit("alice", at(1, 23), 1, 1, "before"),
		commit("alice", at(2, 0), 1, 1, "start"),
		commit("alice", at(3, 23), 1, 1, "end"),
		commit("alice", at(4, 0), 1, 1, "after"),
		{Source: schema.FSFile, Repository: "/data", Timestamp: at(2, 5), Kind: schema.ModifiedKind, Path: "x"},
		{Source: schema.LocalCommit, User: "alice", Kind: schema.CommittedKind},
	}

	res := Aggregate(events, Options{Window: window})
	assert.Equal(t, 3, res.Events)
	require.Len(t, res.Users, 1)
	assert.Equal(t, 2, res.Users[0].CommitCount)
	assert.Len(t, res.UserTimeline, 2)

	res = Aggregate(events, Options{Window: window, IncludeUnattributed: true})
	assert.Len(t, res.UserTimeline, 3)
	assert.Len(t, res.Users, 1)
}

func TestUserOrdering(t *testing.T) {
	events := []schema.Event{
		commit("zed", at(1, 1), 0, 0, "1"),
		commit("amy", at(1, 1), 0, 0, "2"),
		commit("bob", at(1, 1), 0, 0, "3"),
		commit("bob", at(1, 2), 0, 0, "4"),
	}
	res := Aggregate(events, Options{})
	var order []string
	for _, u := range res.Users {
		order = append(order, u.User)
	}
	assert.Equal(t, []string{"bob", "amy", "zed"}, order)

	var daily []string
	for _, r := range res.Daily {
		daily = append(daily, r.User)
	}
	assert.Equal(t, []string{"amy", "bob", "zed"}, daily)
}

func TestTimelines(t *testing.T) {
	events := []schema.Event{
		{Source: schema.APIIssue, Repository: "r", User: "a", Timestamp: at(1, 1), Kind: schema.CreatedKind, Reference: "#1"},
		{Source: schema.APIComment, Repository: "r", User: "b", Timestamp: at(1, 3), Kind: schema.CommentedKind, Reference: "#1"},
		{Source: schema.APIPullRequest, Repository: "r", User: "a", Timestamp: at(1, 2), Kind: schema.MergedKind, Reference: "#2"},
		commit("a", at(1, 4), 1, 0, "c"),
	}
	res := Aggregate(events, Options{})

	require.Len(t, res.IssueTimeline, 2)
	assert.Equal(t, schema.APIComment, res.IssueTimeline[0].Source)
	require.Len(t, res.PRTimeline, 1)
	assert.Equal(t, schema.MergedKind, res.PRTimeline[0].Kind)
	require.Len(t, res.UserTimeline, 4)
	assert.Equal(t, "c", res.UserTimeline[0].Reference)
	assert.True(t, res.UserTimeline[3].Timestamp.Equal(at(1, 1)))
}

// generateEvents builds a deterministic mixed event stream for the
// commutativity checks.
func generateEvents(n int, seed uint64) []schema.Event {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b9))
	users := []string{"alice", "bob", "carol", ""}
	kinds := []schema.Kind{schema.CreatedKind, schema.MergedKind, schema.ClosedKind, schema.CommentedKind}
	events := make([]schema.Event, 0, n)
	for i := range n {
		ts := time.Date(2024, 1, 1+r.IntN(10), r.IntN(24), r.IntN(60), 0, 0, time.UTC)
		user := users[r.IntN(len(users))]
		switch r.IntN(4) {
		case 0:
			events = append(events, commit(user, ts, r.IntN(100), r.IntN(50), fmt.Sprintf("c%d", i)))
		case 1:
			events = append(events, touch(user, ts, fmt.Sprintf("f%d.go", r.IntN(8))))
		case 2:
			events = append(events, schema.Event{Source: schema.APIPullRequest, Repository: "repo", User: user, Timestamp: ts, Kind: kinds[r.IntN(len(kinds))], Reference: fmt.Sprintf("#%d", i)})
		default:
			events = append(events, schema.Event{Source: schema.APIIssue, Repository: "repo", User: user, Timestamp: ts, Kind: kinds[r.IntN(len(kinds))], Reference: fmt.Sprintf("#%d", i)})
		}
	}
	return events
}

func TestAggregationIsCommutative(t *testing.T) {
	events := generateEvents(400, 7)
	opts := Options{SessionHours: true, IncludeUnattributed: true}
	want := Aggregate(events, opts)
	require.NotEmpty(t, want.Daily)

	t.Run("shuffled", func(t *testing.T) {
		r := rand.New(rand.NewPCG(1, 2))
		for range 5 {
			shuffled := append([]schema.Event(nil), events...)
			r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			assert.Equal(t, want, Aggregate(shuffled, opts))
		}
	})

	t.Run("split and merged", func(t *testing.T) {
		for _, parts := range []int{2, 3, 7} {
			partials := make([]*Aggregator, parts)
			for i := range partials {
				partials[i] = New(opts)
			}
			for i, e := range events {
				partials[i%parts].Add(e)
			}
			// Merge in reverse to vary the order too.
			total := New(opts)
			for i := len(partials) - 1; i >= 0; i-- {
				total.Merge(partials[i])
			}
			assert.Equal(t, want, total.Result(), "parts=%d", parts)
		}
	})
}
