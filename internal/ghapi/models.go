package ghapi

import "time"

// Repo is a partial GitHub repository document with fields we use
type Repo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FullName  string    `json:"full_name"`
	Private   bool      `json:"private"`
	Fork      bool      `json:"fork"`
	Owner     User      `json:"owner"`
	HTMLURL   string    `json:"html_url"`
	PushedAt  time.Time `json:"pushed_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a partial GitHub user or org document
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// Contributor is one entry of the contributors listing
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// GitActor is the author or committer block of a git commit
type GitActor struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Date  *time.Time `json:"date"`
}

// GitCommit is the raw git data nested in a commit document
type GitCommit struct {
	Author    *GitActor `json:"author"`
	Committer *GitActor `json:"committer"`
	Message   string    `json:"message"`
}

// Commit is a commit as listed by the commits endpoint
type Commit struct {
	SHA     string    `json:"sha"`
	HTMLURL string    `json:"html_url"`
	Author  *User     `json:"author"`
	Commit  GitCommit `json:"commit"`
}

// CommitStats holds the line totals of a commit
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// CommitFile is one changed file of a commit
type CommitFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// CommitDetail is a single commit with stats and files
type CommitDetail struct {
	Commit
	Stats CommitStats  `json:"stats"`
	Files []CommitFile `json:"files"`
}

// Pull is a pull request as listed by the pulls endpoint
type Pull struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	HTMLURL   string     `json:"html_url"`
	User      *User      `json:"user"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	MergedAt  *time.Time `json:"merged_at"`
}

// Issue is an issue as listed by the issues endpoint. Pull requests show
// up here too and carry a PullRequest link.
type Issue struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	HTMLURL     string     `json:"html_url"`
	User        *User      `json:"user"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

// IsPull reports whether the issue is a pull request.
func (i Issue) IsPull() bool { return i.PullRequest != nil }

// Comment is an issue comment or a pull request review comment
type Comment struct {
	ID        int64      `json:"id"`
	HTMLURL   string     `json:"html_url"`
	User      *User      `json:"user"`
	CreatedAt *time.Time `json:"created_at"`
}

// Review is a submitted pull request review
type Review struct {
	ID          int64      `json:"id"`
	HTMLURL     string     `json:"html_url"`
	State       string     `json:"state"`
	User        *User      `json:"user"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// LoginOf returns the login of u, or empty for a nil or ghost user.
func LoginOf(u *User) string {
	if u == nil {
		return ""
	}
	return u.Login
}
