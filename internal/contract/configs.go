package contract

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/hourglass/schema"
)

// Default values for configuration.
const (
	DefaultPrecision        = 2
	DefaultAPIURL           = "https://api.github.com"
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultMaxRetries       = 5
	DefaultMaxDepth         = 5
	DefaultRootsLimit       = 5
	DefaultPerRootLimit     = 25
	DefaultRootBudget       = 10 * time.Minute
	DefaultProgressInterval = 30 * time.Second
	DefaultWorkers          = 1
)

// DefaultFSExcludes are directory names never descended into by the filesystem scanner.
var DefaultFSExcludes = []string{
	".git", ".hg", ".svn", ".venv", "venv", "node_modules", "dist", "build",
	"__pycache__", ".cache", ".tox", ".mypy_cache", ".pytest_cache", ".idea", ".vscode",
}

// Knobs holds the concurrency and scan limits. Zero values are replaced by
// defaults before validation runs.
type Knobs struct {
	LocalWorkers         int `validate:"gte=1,lte=256"`
	SnapshotRootWorkers  int `validate:"gte=1,lte=64"`
	SnapshotFileWorkers  int `validate:"gte=1,lte=256"`
	AttributionInflight  int `validate:"gte=1,lte=1024"`
	FSWorkers            int `validate:"gte=1,lte=64"`
	MaxDepth             int `validate:"gte=0,lte=32"`
	SnapshotRootsLimit   int `validate:"gte=1,lte=100"`
	SnapshotPerRootLimit int `validate:"gte=1,lte=10000"`
	FSMaxFiles           int `validate:"gte=0"`
	MaxRetries           int `validate:"gte=0,lte=20"`
}

// APIConfig holds the remote API scanner settings.
type APIConfig struct {
	BaseURL                string
	Token                  string // Please use env var as this is plaintext
	User                   string
	Org                    string
	IncludeRepos           []string
	ExcludeRepos           []string
	ContributedBy          string
	RestrictOwner          bool
	Fast                   bool
	SkipCommitStats        bool
	SkipFileModifications  bool
	IncludePRComments      bool
	IncludeReviewComments  bool
	IncludeReviews         bool
	IncludeIssuePRComments bool
	DisableRateLimit       bool
	HTTPTimeout            time.Duration
}

// LocalConfig holds the local repository scanner settings.
type LocalConfig struct {
	Paths        []string
	GitTimeout   time.Duration
	CoAuthors    bool
	AssistantMap string
}

// SnapshotConfig holds the snapshot scanner settings.
type SnapshotConfig struct {
	Auto        bool
	Root        string
	Granularity schema.Granularity
	RootBudget  time.Duration
}

// FSConfig holds the native filesystem scanner settings.
type FSConfig struct {
	Roots    []string
	Excludes []string
	Progress time.Duration
	Force    bool
}

// Config holds the runtime configuration for a report run.
// This struct is the "final, validated" config.
type Config struct {
	Window   schema.Window
	Deadline time.Duration
	Sources  []schema.ScanSource

	API      APIConfig
	Local    LocalConfig
	Snapshot SnapshotConfig
	FS       FSConfig
	Knobs    Knobs

	AllowedUsers        []string
	DefaultUser         string
	IncludeUnattributed bool
	SessionHours        bool

	Output     schema.OutputMode
	OutputFile string
	Sheet      schema.Sheet
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext

	Export        schema.ExportBackend
	ExportConnect string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Window and sources ---
	Start    string `mapstructure:"start"`
	End      string `mapstructure:"end"`
	Deadline string `mapstructure:"deadline"`
	Sources  string `mapstructure:"sources"`

	// --- Remote API ---
	APIURL                 string `mapstructure:"api-url"`
	Token                  string `mapstructure:"token"`
	User                   string `mapstructure:"user"`
	Org                    string `mapstructure:"org"`
	IncludeRepos           string `mapstructure:"include-repos"`
	ExcludeRepos           string `mapstructure:"exclude-repos"`
	ContributedBy          string `mapstructure:"contributed-by"`
	AllowedUsers           string `mapstructure:"allowed-users"`
	RestrictOwner          bool   `mapstructure:"restrict-owner"`
	Fast                   bool   `mapstructure:"fast"`
	SkipCommitStats        bool   `mapstructure:"skip-commit-stats"`
	SkipFileModifications  bool   `mapstructure:"skip-file-modifications"`
	IncludePRComments      bool   `mapstructure:"include-pr-comments"`
	IncludeReviewComments  bool   `mapstructure:"include-review-comments"`
	IncludeReviews         bool   `mapstructure:"include-reviews"`
	IncludeIssuePRComments bool   `mapstructure:"include-issue-pr-comments"`
	DisableRateLimit       bool   `mapstructure:"disable-rate-limit"`
	HTTPTimeout            string `mapstructure:"http-timeout"`
	MaxRetries             int    `mapstructure:"max-retries"`

	// --- Local repositories ---
	LocalPath    string `mapstructure:"local-path"`
	MaxDepth     int    `mapstructure:"max-depth"`
	LocalWorkers int    `mapstructure:"local-workers"`
	GitTimeout   string `mapstructure:"git-timeout"`
	CoAuthors    bool   `mapstructure:"co-authors"`
	AssistantMap string `mapstructure:"assistant-map"`

	// --- Snapshots ---
	SnapshotAuto         bool   `mapstructure:"snapshot-auto"`
	SnapshotRoot         string `mapstructure:"snapshot-root"`
	SnapshotGranularity  string `mapstructure:"snapshot-granularity"`
	SnapshotRootsLimit   int    `mapstructure:"snapshot-roots-limit"`
	SnapshotPerRootLimit int    `mapstructure:"snapshot-per-root-limit"`
	SnapshotRootBudget   string `mapstructure:"snapshot-root-budget"`
	SnapshotRootWorkers  int    `mapstructure:"snapshot-root-workers"`
	SnapshotFileWorkers  int    `mapstructure:"snapshot-file-workers"`
	AttributionInflight  int    `mapstructure:"attribution-inflight"`

	// --- Native filesystem ---
	FSRoots    string `mapstructure:"fs-roots"`
	FSExclude  string `mapstructure:"fs-exclude"`
	FSMaxFiles int    `mapstructure:"fs-max-files"`
	FSProgress string `mapstructure:"fs-progress"`
	FSForce    bool   `mapstructure:"fs-force"`
	FSWorkers  int    `mapstructure:"fs-workers"`

	// --- Aggregation and output ---
	DefaultUser         string `mapstructure:"default-user"`
	IncludeUnattributed bool   `mapstructure:"include-unattributed"`
	SessionHours        bool   `mapstructure:"session-hours"`
	Output              string `mapstructure:"output"`
	OutputFile          string `mapstructure:"output-file"`
	Sheet               string `mapstructure:"sheet"`
	Precision           int    `mapstructure:"precision"`
	Width               int    `mapstructure:"width"`
	Color               string `mapstructure:"color"`

	// --- Persistence and export ---
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	RunsBackend    string `mapstructure:"runs-backend"`
	RunsDBConnect  string `mapstructure:"runs-db-connect"`
	Export         string `mapstructure:"export"`
	ExportConnect  string `mapstructure:"export-connect"`
}

// knobValidator is shared because validator caches struct metadata.
var knobValidator = validator.New(validator.WithRequiredStructEnabled())

// HasSource reports whether the run scans the given source.
func (c *Config) HasSource(s schema.ScanSource) bool {
	return slices.Contains(c.Sources, s)
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Sources = slices.Clone(c.Sources)
	clone.API.IncludeRepos = slices.Clone(c.API.IncludeRepos)
	clone.API.ExcludeRepos = slices.Clone(c.API.ExcludeRepos)
	clone.Local.Paths = slices.Clone(c.Local.Paths)
	clone.FS.Roots = slices.Clone(c.FS.Roots)
	clone.FS.Excludes = slices.Clone(c.FS.Excludes)
	clone.AllowedUsers = slices.Clone(c.AllowedUsers)
	return &clone
}

// Params returns the settings recorded alongside a run. Secrets are left out.
func (c *Config) Params() map[string]any {
	params := map[string]any{
		"sources":     c.Sources,
		"user":        c.API.User,
		"org":         c.API.Org,
		"granularity": c.Snapshot.Granularity,
		"local_paths": c.Local.Paths,
		"fs_roots":    c.FS.Roots,
	}
	if !c.Window.Start.IsZero() {
		params["start"] = c.Window.Start.Format(schema.DateLayout)
	}
	if !c.Window.End.IsZero() {
		params["end"] = c.Window.End.Format(schema.DateLayout)
	}
	return params
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. Any failure is a *ConfigError.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	return ProcessAndValidateAt(cfg, input, time.Now())
}

// ProcessAndValidateAt is ProcessAndValidate with an explicit clock for relative dates.
func ProcessAndValidateAt(cfg *Config, input *ConfigRawInput, now time.Time) error {
	validations := []func(*Config, *ConfigRawInput) error{
		validateSimpleInputs,
		func(c *Config, in *ConfigRawInput) error { return processTimeRange(c, in, now) },
		processSources,
		processAPI,
		processLocal,
		processSnapshot,
		processFilesystem,
		processKnobs,
		validateBackendConfigs,
		processExport,
	}
	for _, validate := range validations {
		if err := validate(cfg, input); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return errors.New("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return errors.New("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return errors.New("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return errors.New("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.IncludeUnattributed = input.IncludeUnattributed
	cfg.SessionHours = input.SessionHours
	cfg.DefaultUser = strings.TrimSpace(input.DefaultUser)
	cfg.AllowedUsers = SplitList(input.AllowedUsers)

	colors := true
	if input.Color != "" {
		parsed, err := ParseBoolString(input.Color)
		if err != nil {
			return &ConfigError{Field: "color", Err: err}
		}
		colors = parsed
	}
	cfg.UseColors = colors

	cfg.Precision = input.Precision
	if cfg.Precision == 0 {
		cfg.Precision = DefaultPrecision
	}
	if cfg.Precision < 0 || cfg.Precision > 4 {
		return configErrorf("precision", "must be between 0 and 4 (received %d)", input.Precision)
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return configErrorf("output", "'%s' must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return configErrorf("output-file", "a directory is required for parquet output")
	}

	cfg.Sheet = schema.Sheet(strings.ToLower(input.Sheet))
	if cfg.Sheet != "" {
		if _, ok := schema.ValidSheets[cfg.Sheet]; !ok {
			return configErrorf("sheet", "unknown sheet '%s'", input.Sheet)
		}
	}
	return nil
}

// processTimeRange parses the window bounds and the optional wall-clock deadline.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	start, err := ParseDateBound(input.Start, now)
	if err != nil {
		return &ConfigError{Field: "start", Err: err}
	}
	end, err := ParseDateBound(input.End, now)
	if err != nil {
		return &ConfigError{Field: "end", Err: err}
	}
	cfg.Window = schema.NewWindow(start, end)
	if !cfg.Window.Start.IsZero() && !cfg.Window.End.IsZero() && cfg.Window.Start.After(cfg.Window.End) {
		return configErrorf("date range", "start (%s) cannot be after end (%s)",
			cfg.Window.Start.Format(schema.DateLayout), cfg.Window.End.Format(schema.DateLayout))
	}

	deadline, err := ParseDuration(input.Deadline)
	if err != nil {
		return &ConfigError{Field: "deadline", Err: err}
	}
	cfg.Deadline = deadline
	return nil
}

// processSources parses the selected scan sources.
func processSources(cfg *Config, input *ConfigRawInput) error {
	cfg.Sources = nil
	for _, name := range SplitList(input.Sources) {
		src := schema.ScanSource(strings.ToLower(name))
		if _, ok := schema.ValidScanSources[src]; !ok {
			return configErrorf("sources", "unknown source '%s'. must be api, local, snapshot, filesystem", name)
		}
		if !slices.Contains(cfg.Sources, src) {
			cfg.Sources = append(cfg.Sources, src)
		}
	}
	if len(cfg.Sources) == 0 {
		return configErrorf("sources", "at least one source is required")
	}
	return nil
}

// processAPI transfers the remote API settings.
func processAPI(cfg *Config, input *ConfigRawInput) error {
	api := APIConfig{
		BaseURL:                strings.TrimRight(input.APIURL, "/"),
		Token:                  input.Token,
		User:                   strings.TrimSpace(input.User),
		Org:                    strings.TrimSpace(input.Org),
		IncludeRepos:           SplitList(input.IncludeRepos),
		ExcludeRepos:           SplitList(input.ExcludeRepos),
		ContributedBy:          strings.TrimSpace(input.ContributedBy),
		RestrictOwner:          input.RestrictOwner,
		Fast:                   input.Fast,
		SkipCommitStats:        input.SkipCommitStats,
		SkipFileModifications:  input.SkipFileModifications,
		IncludePRComments:      input.IncludePRComments,
		IncludeReviewComments:  input.IncludeReviewComments,
		IncludeReviews:         input.IncludeReviews,
		IncludeIssuePRComments: input.IncludeIssuePRComments,
		DisableRateLimit:       input.DisableRateLimit,
	}
	if api.BaseURL == "" {
		api.BaseURL = DefaultAPIURL
	}
	if u, err := url.Parse(api.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return configErrorf("api-url", "'%s' is not an absolute URL", input.APIURL)
	}

	timeout, err := ParseDuration(input.HTTPTimeout)
	if err != nil {
		return &ConfigError{Field: "http-timeout", Err: err}
	}
	if timeout == 0 {
		timeout = DefaultHTTPTimeout
	}
	api.HTTPTimeout = timeout

	if cfg.HasSource(schema.APIScan) && api.User == "" && api.Org == "" && api.Token == "" {
		return configErrorf("user", "the api source needs a user, an org or a token")
	}
	cfg.API = api
	return nil
}

// processLocal resolves local repository paths.
func processLocal(cfg *Config, input *ConfigRawInput) error {
	cfg.Local = LocalConfig{
		CoAuthors:    input.CoAuthors,
		AssistantMap: strings.TrimSpace(input.AssistantMap),
	}
	timeout, err := ParseDuration(input.GitTimeout)
	if err != nil {
		return &ConfigError{Field: "git-timeout", Err: err}
	}
	if timeout == 0 {
		timeout = DefaultGitTimeout
	}
	cfg.Local.GitTimeout = timeout

	if !cfg.HasSource(schema.LocalScan) {
		return nil
	}
	paths, err := resolveDirs("local-path", SplitList(input.LocalPath))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return configErrorf("local-path", "the local source needs at least one path")
	}
	cfg.Local.Paths = paths

	if cfg.Local.AssistantMap != "" {
		if _, err := os.Stat(cfg.Local.AssistantMap); err != nil {
			return &ConfigError{Field: "assistant-map", Err: err}
		}
	}
	return nil
}

// processSnapshot validates the snapshot settings.
func processSnapshot(cfg *Config, input *ConfigRawInput) error {
	cfg.Snapshot = SnapshotConfig{
		Auto:        input.SnapshotAuto,
		Granularity: schema.Granularity(strings.ToLower(input.SnapshotGranularity)),
	}
	if cfg.Snapshot.Granularity == "" {
		cfg.Snapshot.Granularity = schema.FileGranularity
	}
	if _, ok := schema.ValidGranularities[cfg.Snapshot.Granularity]; !ok {
		return configErrorf("snapshot-granularity", "'%s' must be file or coarse", input.SnapshotGranularity)
	}

	budget, err := ParseDuration(input.SnapshotRootBudget)
	if err != nil {
		return &ConfigError{Field: "snapshot-root-budget", Err: err}
	}
	if budget == 0 {
		budget = DefaultRootBudget
	}
	cfg.Snapshot.RootBudget = budget

	if !cfg.HasSource(schema.SnapshotScan) {
		return nil
	}
	if input.SnapshotRoot != "" {
		roots, err := resolveDirs("snapshot-root", []string{input.SnapshotRoot})
		if err != nil {
			return err
		}
		cfg.Snapshot.Root = roots[0]
	}
	if !cfg.Snapshot.Auto && cfg.Snapshot.Root == "" {
		return configErrorf("snapshot-root", "the snapshot source needs snapshot-auto or a pinned snapshot-root")
	}
	return nil
}

// processFilesystem validates the native filesystem settings.
func processFilesystem(cfg *Config, input *ConfigRawInput) error {
	cfg.FS = FSConfig{Force: input.FSForce}
	cfg.FS.Excludes = slices.Clone(DefaultFSExcludes)
	for _, ex := range SplitList(input.FSExclude) {
		if !slices.Contains(cfg.FS.Excludes, ex) {
			cfg.FS.Excludes = append(cfg.FS.Excludes, ex)
		}
	}

	progress, err := ParseDuration(input.FSProgress)
	if err != nil {
		return &ConfigError{Field: "fs-progress", Err: err}
	}
	if progress == 0 {
		progress = DefaultProgressInterval
	}
	cfg.FS.Progress = progress

	if !cfg.HasSource(schema.FilesystemScan) {
		return nil
	}
	roots, err := resolveDirs("fs-roots", SplitList(input.FSRoots))
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		return configErrorf("fs-roots", "the filesystem source needs at least one root")
	}
	cfg.FS.Roots = roots
	return nil
}

// processKnobs applies defaults to unset knobs and validates their ranges.
func processKnobs(cfg *Config, input *ConfigRawInput) error {
	orDefault := func(v, def int) int {
		if v == 0 {
			return def
		}
		return v
	}
	cfg.Knobs = Knobs{
		LocalWorkers:         orDefault(input.LocalWorkers, DefaultWorkers),
		SnapshotRootWorkers:  orDefault(input.SnapshotRootWorkers, DefaultWorkers),
		SnapshotFileWorkers:  orDefault(input.SnapshotFileWorkers, DefaultWorkers),
		AttributionInflight:  orDefault(input.AttributionInflight, DefaultWorkers),
		FSWorkers:            orDefault(input.FSWorkers, DefaultWorkers),
		MaxDepth:             orDefault(input.MaxDepth, DefaultMaxDepth),
		SnapshotRootsLimit:   orDefault(input.SnapshotRootsLimit, DefaultRootsLimit),
		SnapshotPerRootLimit: orDefault(input.SnapshotPerRootLimit, DefaultPerRootLimit),
		FSMaxFiles:           input.FSMaxFiles,
		MaxRetries:           input.MaxRetries,
	}

	err := knobValidator.Struct(cfg.Knobs)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return configErrorf(knobFlagName(fe.Field()), "%v fails %s=%s", fe.Value(), fe.Tag(), fe.Param())
	}
	if err != nil {
		return &ConfigError{Field: "knobs", Err: err}
	}
	return nil
}

// knobFlagName maps a Knobs field to its flag name.
func knobFlagName(field string) string {
	names := map[string]string{
		"LocalWorkers":         "local-workers",
		"SnapshotRootWorkers":  "snapshot-root-workers",
		"SnapshotFileWorkers":  "snapshot-file-workers",
		"AttributionInflight":  "attribution-inflight",
		"FSWorkers":            "fs-workers",
		"MaxDepth":             "max-depth",
		"SnapshotRootsLimit":   "snapshot-roots-limit",
		"SnapshotPerRootLimit": "snapshot-per-root-limit",
		"FSMaxFiles":           "fs-max-files",
		"MaxRetries":           "max-retries",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return field
}

// validateBackendConfigs validates cache and run store backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	parse := func(field, raw string) (schema.DatabaseBackend, error) {
		backend := schema.DatabaseBackend(strings.ToLower(raw))
		if backend == "" {
			return schema.NoneBackend, nil
		}
		if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
			return "", configErrorf(field, "'%s' must be sqlite, mysql, postgresql, none", raw)
		}
		return backend, nil
	}

	var err error
	if cfg.CacheBackend, err = parse("cache-backend", input.CacheBackend); err != nil {
		return err
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return &ConfigError{Field: "cache-db-connect", Err: err}
	}

	if cfg.RunsBackend, err = parse("runs-backend", input.RunsBackend); err != nil {
		return err
	}
	cfg.RunsDBConnect = input.RunsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect); err != nil {
		return &ConfigError{Field: "runs-db-connect", Err: err}
	}
	return nil
}

// processExport validates the event export sink.
func processExport(cfg *Config, input *ConfigRawInput) error {
	cfg.Export = schema.ExportBackend(strings.ToLower(input.Export))
	if _, ok := schema.ValidExportBackends[cfg.Export]; !ok {
		return configErrorf("export", "'%s' must be parquet or clickhouse", input.Export)
	}
	cfg.ExportConnect = strings.TrimSpace(input.ExportConnect)
	if cfg.Export != schema.NoExport && cfg.ExportConnect == "" {
		return configErrorf("export-connect", "a destination is required for %s export", cfg.Export)
	}
	return nil
}

// resolveDirs makes paths absolute and checks each one is an existing directory.
func resolveDirs(field string, paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(ExpandHome(p))
		if err != nil {
			return nil, &ConfigError{Field: field, Err: err}
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, configErrorf(field, "path %q does not exist", p)
		}
		if !info.IsDir() {
			return nil, configErrorf(field, "path %q is not a directory", p)
		}
		out = append(out, filepath.Clean(abs))
	}
	return out, nil
}

// RevalidateWindow re-parses the window bounds for a request made against an
// already validated config, such as an MCP tool call. Empty bounds keep the
// configured ones.
func RevalidateWindow(cfg *Config, start, end string, now time.Time) error {
	input := &ConfigRawInput{Start: start, End: end}
	if start == "" && !cfg.Window.Start.IsZero() {
		input.Start = cfg.Window.Start.Format(schema.DateLayout)
	}
	if end == "" && !cfg.Window.End.IsZero() {
		input.End = cfg.Window.End.Format(schema.DateLayout)
	}
	deadline := cfg.Deadline
	if err := processTimeRange(cfg, input, now); err != nil {
		return err
	}
	cfg.Deadline = deadline
	return nil
}

// RevalidateSources replaces the configured sources when sources is non-empty.
// Sources that need settings the config lacks are rejected.
func RevalidateSources(cfg *Config, sources string) error {
	if strings.TrimSpace(sources) == "" {
		return nil
	}
	if err := processSources(cfg, &ConfigRawInput{Sources: sources}); err != nil {
		return err
	}
	switch {
	case cfg.HasSource(schema.LocalScan) && len(cfg.Local.Paths) == 0:
		return configErrorf("local-path", "the local source needs at least one path")
	case cfg.HasSource(schema.FilesystemScan) && len(cfg.FS.Roots) == 0:
		return configErrorf("fs-roots", "the filesystem source needs at least one root")
	case cfg.HasSource(schema.SnapshotScan) && !cfg.Snapshot.Auto && cfg.Snapshot.Root == "":
		return configErrorf("snapshot-root", "the snapshot source needs snapshot-auto or a pinned snapshot-root")
	case cfg.HasSource(schema.APIScan) && cfg.API.User == "" && cfg.API.Org == "" && cfg.API.Token == "":
		return configErrorf("user", "the api source needs a user, an org or a token")
	}
	return nil
}
