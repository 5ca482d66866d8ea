package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoAuthors(t *testing.T) {
	body := "Fix flaky test\n\nCo-authored-by: Alice Smith <alice@example.com>\nco-authored-by: Copilot <copilot@github.com>\nCo-Authored-By: Just A Name\nSigned-off-by: Bob <bob@x>\n"
	got := ParseCoAuthors(body)
	assert.Equal(t, []Identity{
		{Name: "Alice Smith", Email: "alice@example.com"},
		{Name: "Copilot", Email: "copilot@github.com"},
		{Name: "Just A Name"},
	}, got)
	assert.Empty(t, ParseCoAuthors("no trailers here"))
}

func TestAttributorResolve(t *testing.T) {
	bot := Identity{Name: "Copilot", Email: "198982749+Copilot@users.noreply.github.com"}
	alice := Identity{Name: "Alice", Email: "alice@example.com"}

	tests := []struct {
		name       string
		coAuthors  bool
		invokers   map[string]string
		author     Identity
		body       string
		wantResult string
	}{
		{
			name:       "disabled keeps author",
			author:     bot,
			wantResult: "Copilot",
		},
		{
			name:       "human author unaffected",
			coAuthors:  true,
			author:     alice,
			body:       "Co-authored-by: Bob <bob@x.com>",
			wantResult: "Alice",
		},
		{
			name:       "assistant author credited to human co-author",
			coAuthors:  true,
			author:     bot,
			body:       "Co-authored-by: Alice <alice@example.com>",
			wantResult: "Alice",
		},
		{
			name:       "assistant co-author with human author stays with author",
			coAuthors:  true,
			author:     alice,
			body:       "Co-authored-by: Copilot <copilot@github.com>",
			wantResult: "Alice",
		},
		{
			name:       "assistant author mapped to invoker by name",
			invokers:   map[string]string{"COPILOT": "dana"},
			author:     bot,
			wantResult: "dana",
		},
		{
			name:       "assistant author mapped to invoker by email",
			invokers:   map[string]string{bot.Email: "erin"},
			author:     bot,
			wantResult: "erin",
		},
		{
			name:       "unmapped assistant keeps author",
			invokers:   map[string]string{"someone-else": "x"},
			author:     bot,
			wantResult: "Copilot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAttributor(tt.coAuthors, tt.invokers)
			assert.Equal(t, tt.wantResult, a.Resolve(tt.author, tt.body))
		})
	}
}

func TestAttributorFlags(t *testing.T) {
	var nilAttr *Attributor
	assert.False(t, nilAttr.Enabled())
	assert.False(t, nilAttr.NeedsMessages())

	a := NewAttributor(false, map[string]string{"copilot": "dana"})
	assert.True(t, a.Enabled())
	assert.False(t, a.NeedsMessages())
	assert.True(t, a.IsAssistant(Identity{Name: "GitHub Copilot"}))
	assert.False(t, a.IsAssistant(Identity{Name: "Alice", Email: "alice@x.com"}))
}

func TestLoadAssistantMap(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "map.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"copilot": "alice", "bad": 3, " ": "x"}`), 0o644))
		got, err := LoadAssistantMap(path)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"copilot": "alice"}, got)
	})

	t.Run("csv with header", func(t *testing.T) {
		path := filepath.Join(dir, "map.csv")
		require.NoError(t, os.WriteFile(path, []byte("assistant_id,user\ncopilot,bob\nlonely\n"), 0o644))
		got, err := LoadAssistantMap(path)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"copilot": "bob"}, got)
	})

	t.Run("empty path", func(t *testing.T) {
		got, err := LoadAssistantMap("")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "map.yaml")
		require.NoError(t, os.WriteFile(path, []byte("a: b"), 0o644))
		_, err := LoadAssistantMap(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAssistantMap(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}
