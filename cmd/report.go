package cmd

import (
	"github.com/huangsam/hourglass/core"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/spf13/cobra"
)

// reportCmd runs every selected scanner and prints the hour estimates.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Estimate hours per user and day for a date window.",
	Long: `Scan the selected sources and estimate developer hours.

Sources:
- api: commits, pull requests, issues and comments from GitHub
- local: commits and file changes from local clones
- snapshot: file changes between editor or backup snapshots
- filesystem: modification times of files under the given roots

Each day a user was active gets commits*0.5 + (lines added + lines deleted)/30
estimated hours. The report has six sheets: daily, users, days,
pr_timeline, issue_timeline and user_timeline.

Examples:
  # Last two weeks of a user's GitHub activity
  hourglass report --user octocat --start "2 weeks ago"

  # Combine local clones and GitHub, one CSV section per sheet
  hourglass report --sources api,local --local-path ~/src --output csv

  # Only the per-user totals as JSON
  hourglass report --sheet users --output json

  # Parquet sheets plus a raw event export to S3
  hourglass report --output parquet --output-file out/ --export parquet --export-connect s3://bucket/events.parquet`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteReport(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build report", err)
		}
	},
}

// timelineCmd prints only the merged pull request and issue timeline.
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "List pull request and issue activity in time order.",
	Long: `Scan the selected sources and print the user timeline: every pull request
and issue event, oldest first.

Examples:
  # One user's timeline for January
  hourglass timeline --user octocat --start 2024-01-01 --end 2024-01-31 --allowed-users octocat`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTimeline(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build timeline", err)
		}
	},
}
