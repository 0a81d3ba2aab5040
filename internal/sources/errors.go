package sources

import (
	"fmt"
	"strings"
)

// UpstreamError is a non-2xx response from the Graph API
type UpstreamError struct {
	Status  int
	Body    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("graph API returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("graph API returned status %d", e.Status)
}

// Attempt records the outcome of one discovery strategy
type Attempt struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
}

// DiscoveryError is returned when no strategy resolved an account
type DiscoveryError struct {
	Attempts []Attempt
}

func (e *DiscoveryError) Error() string {
	if len(e.Attempts) == 0 {
		return "no Instagram account found: no discovery strategy could run"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Strategy+": "+a.Error)
	}
	return "no Instagram account found (" + strings.Join(parts, "; ") + ")"
}
