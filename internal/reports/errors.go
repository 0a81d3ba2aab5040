package reports

import "fmt"

// InsufficientDataError is returned when the lookback window holds no posts
type InsufficientDataError struct {
	UserID       string
	LookbackDays int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("no posts found in the last %d days; sync or add at least a few posts before generating a report", e.LookbackDays)
}

// ReportGenerationError wraps a report writer failure. Nothing is persisted
// when it is returned.
type ReportGenerationError struct {
	Err error
}

func (e *ReportGenerationError) Error() string {
	return fmt.Sprintf("failed to generate report: %v", e.Err)
}

func (e *ReportGenerationError) Unwrap() error { return e.Err }
