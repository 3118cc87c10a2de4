package cli

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError marks err as a command-line usage problem (exit code 2).
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: 2, Message: err.Error()}
}
