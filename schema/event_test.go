package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2024, 1, 2, 3, 0, 0, 0, loc) // 2024-01-01T18:00Z

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), DateOf(local))
	assert.True(t, DateOf(time.Time{}).IsZero())
}

func TestWindowContains(t *testing.T) {
	w := NewWindow(time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), false},
		{"start of first day", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"end of last day", time.Date(2024, 1, 3, 23, 59, 59, 0, time.UTC), true},
		{"after end", time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.at))
		})
	}

	assert.True(t, Window{}.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 1, 3, 23, 59, 59, 999999999, time.UTC), w.Until())
	assert.True(t, Window{}.Until().IsZero())
}

func TestEventValidate(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, Event{Source: LocalCommit, Timestamp: ts}.Validate())
	assert.Error(t, Event{Timestamp: ts}.Validate())
	assert.Error(t, Event{Source: LocalCommit}.Validate())
	assert.Error(t, Event{Source: LocalCommit, Timestamp: ts, LinesAdded: -1}.Validate())
}

func TestEventKey(t *testing.T) {
	a := Event{Source: APICommit, Repository: "r", Reference: "abc", Path: "x.go", User: "alice"}
	b := Event{Source: APICommit, Repository: "r", Reference: "abc", Path: "x.go", User: "bob"}
	c := Event{Source: LocalCommit, Repository: "r", Reference: "abc", Path: "x.go"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestCountersAdd(t *testing.T) {
	c := Counters{CommitCount: 1, LinesAdded: 2}
	c.Add(Counters{CommitCount: 2, LinesDeleted: 3, IssueComments: 1})

	assert.Equal(t, Counters{CommitCount: 3, LinesAdded: 2, LinesDeleted: 3, IssueComments: 1}, c)
	assert.Equal(t, 5, c.TotalLines())
	assert.False(t, c.IsZero())
	assert.True(t, Counters{}.IsZero())
}
