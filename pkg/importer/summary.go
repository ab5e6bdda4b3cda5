package importer

import "fmt"

// RunSummary tallies the outcome of one importer run.
type RunSummary struct {
	Fetched  int
	Inserted int
	Skipped  int
	Flagged  int
	Failed   int
}

// Count records a commit status in the summary.
func (s *RunSummary) Count(status CommitStatus) {
	switch status {
	case Inserted, WouldInsert:
		s.Inserted++
	case SkippedDuplicate:
		s.Skipped++
	}
}

// Clean reports whether the run completed without per-entry failures.
func (s *RunSummary) Clean() bool {
	return s.Failed == 0
}

// String renders the summary for CLI output.
func (s *RunSummary) String() string {
	return fmt.Sprintf("fetched=%d inserted=%d skipped=%d flagged=%d failed=%d",
		s.Fetched, s.Inserted, s.Skipped, s.Flagged, s.Failed)
}
