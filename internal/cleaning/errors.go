package cleaning

import "fmt"

// ConfigurationError reports invalid user input detected before any model is fitted.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientDataError indicates a column cannot be modelled from the rows available.
type InsufficientDataError struct {
	Column string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for column %q: %s", e.Column, e.Reason)
}

// SingularMatrixError indicates XᵀX could not be inverted, so leverage is undefined.
type SingularMatrixError struct {
	Rows int
	Cols int
	Err  error
}

func (e *SingularMatrixError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feature matrix (%dx%d) is singular: %v", e.Rows, e.Cols, e.Err)
	}
	return fmt.Sprintf("feature matrix (%dx%d) is singular", e.Rows, e.Cols)
}

func (e *SingularMatrixError) Unwrap() error { return e.Err }

// NoOutliersFoundError indicates an outlier pass flagged nothing while the row
// count is still above target, so the loop cannot make progress.
type NoOutliersFoundError struct {
	Iteration int
	Rows      int
	Target    int
}

func (e *NoOutliersFoundError) Error() string {
	return fmt.Sprintf("no outliers flagged in iteration %d: %d rows remain, target is %d", e.Iteration, e.Rows, e.Target)
}
