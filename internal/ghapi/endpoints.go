package ghapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// maxPages guards against servers that keep returning full pages.
const maxPages = 1000

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// RepoQuery selects which repository listing to enumerate.
type RepoQuery struct {
	Org  string // organization listing when set
	User string // user listing otherwise
	Self bool   // the authenticated user's listing, includes private repos
}

// AuthenticatedUser returns the user owning the token.
func (c *Client) AuthenticatedUser(ctx context.Context) (User, error) {
	var out User
	_, err := c.getJSON(ctx, "/user", nil, &out)
	return out, err
}

// ListRepos enumerates the repositories of an org, a user or the token owner.
func (c *Client) ListRepos(ctx context.Context, q RepoQuery) ([]Repo, error) {
	params := url.Values{"type": {"all"}}
	var path string
	switch {
	case q.Org != "":
		path = fmt.Sprintf("/orgs/%s/repos", url.PathEscape(q.Org))
	case q.Self:
		path = "/user/repos"
		params.Set("sort", "updated")
		params.Set("affiliation", "owner,collaborator,organization_member")
		params.Del("type")
	default:
		path = fmt.Sprintf("/users/%s/repos", url.PathEscape(q.User))
		params.Set("sort", "updated")
	}
	return listAll[Repo](ctx, c, path, params, nil)
}

// ListContributors returns the contributors of a repository.
func (c *Client) ListContributors(ctx context.Context, fullName string) ([]Contributor, error) {
	return listAll[Contributor](ctx, c, fmt.Sprintf("/repos/%s/contributors", fullName), nil, nil)
}

// ListCommits returns the commits of the default branch inside [since, until].
func (c *Client) ListCommits(ctx context.Context, fullName string, since, until time.Time) ([]Commit, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	if !until.IsZero() {
		params.Set("until", until.UTC().Format(time.RFC3339))
	}
	return listAll[Commit](ctx, c, fmt.Sprintf("/repos/%s/commits", fullName), params, nil)
}

// GetCommit returns one commit with its stats and files.
func (c *Client) GetCommit(ctx context.Context, fullName, sha string) (CommitDetail, error) {
	var out CommitDetail
	_, err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/commits/%s", fullName, sha), nil, &out)
	return out, err
}

// ListPulls returns pull requests most recently updated first. Paging stops
// once a whole page was last updated before since, because none of its
// lifecycle timestamps can fall inside the window.
func (c *Client) ListPulls(ctx context.Context, fullName string, since time.Time) ([]Pull, error) {
	params := url.Values{"state": {"all"}, "sort": {"updated"}, "direction": {"desc"}}
	var stop func([]Pull) bool
	if !since.IsZero() {
		stop = func(page []Pull) bool {
			for _, p := range page {
				if p.UpdatedAt == nil || !p.UpdatedAt.Before(since) {
					return false
				}
			}
			return len(page) > 0
		}
	}
	return listAll(ctx, c, fmt.Sprintf("/repos/%s/pulls", fullName), params, stop)
}

// ListIssues returns issues and pull requests updated at or after since.
func (c *Client) ListIssues(ctx context.Context, fullName string, since time.Time) ([]Issue, error) {
	params := url.Values{"state": {"all"}}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	return listAll[Issue](ctx, c, fmt.Sprintf("/repos/%s/issues", fullName), params, nil)
}

// ListIssueComments returns the conversation comments of an issue or pull request.
func (c *Client) ListIssueComments(ctx context.Context, fullName string, number int) ([]Comment, error) {
	return listAll[Comment](ctx, c, fmt.Sprintf("/repos/%s/issues/%d/comments", fullName, number), nil, nil)
}

// ListReviewComments returns the inline review comments of a pull request.
func (c *Client) ListReviewComments(ctx context.Context, fullName string, number int) ([]Comment, error) {
	return listAll[Comment](ctx, c, fmt.Sprintf("/repos/%s/pulls/%d/comments", fullName, number), nil, nil)
}

// ListReviews returns the submitted reviews of a pull request.
func (c *Client) ListReviews(ctx context.Context, fullName string, number int) ([]Review, error) {
	return listAll[Review](ctx, c, fmt.Sprintf("/repos/%s/pulls/%d/reviews", fullName, number), nil, nil)
}

// listAll follows pagination until the last page or until stop accepts a page.
// Without a Link header a full page moves on to the next page number.
func listAll[T any](ctx context.Context, c *Client, path string, params url.Values, stop func([]T) bool) ([]T, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("per_page", strconv.Itoa(c.opts.PerPage))

	var out []T
	target := path
	page := 1
	for range maxPages {
		var items []T
		next, err := c.getJSON(ctx, target, query, &items)
		if err != nil {
			return out, err
		}
		out = append(out, items...)
		if stop != nil && stop(items) {
			return out, nil
		}

		switch {
		case next != "":
			target, query = next, nil
		case query != nil && len(items) == c.opts.PerPage:
			page++
			query.Set("page", strconv.Itoa(page))
		default:
			return out, nil
		}
	}
	return out, nil
}

// getJSON issues a call and decodes the body into out. It returns the next
// page link when the response carries one.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) (string, error) {
	resp, err := c.Call(ctx, path, params)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("close body failed")
		}
	}()

	if resp.StatusCode == http.StatusNoContent {
		return "", nil
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, 32<<20))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return "", &APIError{Kind: Unexpected, Status: resp.StatusCode, Path: path, Attempts: 1, Err: fmt.Errorf("decode: %w", err)}
	}
	return nextLink(resp.Header), nil
}

// nextLink extracts the rel="next" target of a Link header.
func nextLink(h http.Header) string {
	for _, v := range h.Values("Link") {
		if m := nextLinkRe.FindStringSubmatch(v); m != nil {
			return m[1]
		}
	}
	return ""
}
