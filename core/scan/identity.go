package scan

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/hourglass/core/normalize"
)

// assistantMarker identifies coding assistants by name or email.
const assistantMarker = "copilot"

const coAuthorTrailer = "co-authored-by:"

// mappingHeaderKey is the optional header cell of a CSV assistant map.
const mappingHeaderKey = "assistant_id"

// Identity is a git name and email pair.
type Identity struct {
	Name  string
	Email string
}

// Attributor decides which user a commit is credited to when a coding
// assistant took part in it.
type Attributor struct {
	coAuthors bool
	invokers  map[string]string // folded identity -> user
}

// NewAttributor builds an attributor. useCoAuthors enables trailer parsing.
func NewAttributor(useCoAuthors bool, invokers map[string]string) *Attributor {
	folded := make(map[string]string, len(invokers))
	for k, v := range invokers {
		if k = normalize.FoldUser(k); k != "" && strings.TrimSpace(v) != "" {
			folded[k] = strings.TrimSpace(v)
		}
	}
	return &Attributor{coAuthors: useCoAuthors, invokers: folded}
}

// Enabled reports whether attribution can change any commit.
func (a *Attributor) Enabled() bool {
	return a != nil && (a.coAuthors || len(a.invokers) > 0)
}

// NeedsMessages reports whether commit bodies must be read.
func (a *Attributor) NeedsMessages() bool {
	return a != nil && a.coAuthors
}

// IsAssistant reports whether an identity looks like a coding assistant.
func (a *Attributor) IsAssistant(id Identity) bool {
	return strings.Contains(normalize.FoldUser(id.Name+" "+id.Email), assistantMarker)
}

// Resolve returns the user to credit for a commit. body may be empty when
// messages were not read.
func (a *Attributor) Resolve(author Identity, body string) string {
	if !a.Enabled() {
		return author.Name
	}

	involved := a.IsAssistant(author)
	assistant := firstNonEmpty(author.Email, author.Name)
	human := ""
	if a.coAuthors {
		for _, co := range ParseCoAuthors(body) {
			if a.IsAssistant(co) {
				involved = true
				assistant = firstNonEmpty(co.Email, co.Name)
			} else if human == "" {
				human = co.Name
			}
		}
	}
	if !involved {
		return author.Name
	}
	if human != "" {
		return human
	}
	if user, ok := a.invokers[normalize.FoldUser(assistant)]; ok {
		return user
	}
	if user, ok := a.invokers[normalize.FoldUser(author.Name)]; ok {
		return user
	}
	if user, ok := a.invokers[normalize.FoldUser(author.Email)]; ok {
		return user
	}
	return author.Name
}

// ParseCoAuthors reads "Co-authored-by: Name <email>" trailers.
func ParseCoAuthors(body string) []Identity {
	var out []Identity
	for line := range strings.SplitSeq(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), coAuthorTrailer) {
			continue
		}
		value := strings.TrimSpace(line[len(coAuthorTrailer):])
		if i := strings.LastIndex(value, "<"); i >= 0 && strings.HasSuffix(value, ">") {
			out = append(out, Identity{
				Name:  strings.TrimSpace(value[:i]),
				Email: strings.TrimSpace(value[i+1 : len(value)-1]),
			})
			continue
		}
		if value != "" {
			out = append(out, Identity{Name: value})
		}
	}
	return out
}

// LoadAssistantMap reads an assistant to user mapping from a JSON object or
// a two column CSV file, chosen by extension.
func LoadAssistantMap(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assistant map: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSONMap(f)
	case ".csv":
		return decodeCSVMap(f)
	default:
		return nil, fmt.Errorf("unsupported assistant map format %q", filepath.Ext(path))
	}
}

func decodeJSONMap(r io.Reader) (map[string]string, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode assistant map: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k, s = strings.TrimSpace(k), strings.TrimSpace(s); k != "" && s != "" {
			out[k] = s
		}
	}
	return out, nil
}

func decodeCSVMap(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	out := make(map[string]string)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode assistant map: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		key, value := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if key == "" || value == "" || strings.EqualFold(key, mappingHeaderKey) {
			continue
		}
		out[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
