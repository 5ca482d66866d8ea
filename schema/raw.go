package schema

import "time"

// LocalCommitRecord is one commit parsed from a local git log.
type LocalCommitRecord struct {
	Hash         string
	Author       string
	Email        string
	Date         time.Time
	Subject      string
	Additions    int
	Deletions    int
	Files        []string
	AttributedTo string // resolved user after co-author and assistant rules
}

// FileChangeRecord is one path touched by a local commit.
type FileChangeRecord struct {
	Commit       string
	Author       string
	Date         time.Time
	Path         string
	AttributedTo string
}

// SnapshotFileRecord is one file observed under a snapshot root.
type SnapshotFileRecord struct {
	Root     string
	Snapshot string
	RelPath  string
	ModTime  time.Time

	// Set only when per-file attribution found a commit for the path.
	Commit     string
	Author     string
	CommitTime time.Time
}

// FSFileRecord is one file observed by the native filesystem scanner.
type FSFileRecord struct {
	Root    string
	RelPath string
	ModTime time.Time
	Owner   string
}
