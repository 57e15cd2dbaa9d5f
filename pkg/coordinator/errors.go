package coordinator

import "fmt"

// RefreshError is the cycle level failure of a refresh pass. Err joins the
// causes of every platform that failed.
type RefreshError struct {
	Failed    int
	Attempted int
	Err       error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed for %d of %d platforms: %v", e.Failed, e.Attempted, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
