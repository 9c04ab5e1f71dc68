package forecast

import "fmt"

// InsufficientDataError means no year produced a usable model
type InsufficientDataError struct {
	Utility string
	Target  Target
	Reason  string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s %s forecast: %s", e.Utility, e.Target, e.Reason)
}
