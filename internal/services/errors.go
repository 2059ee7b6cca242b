package services

import "fmt"

// ConfigurationError reports a missing connection string or credential.
// Fatal at startup; no partial work is possible without the dependency.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProfileNotFoundError is fatal for a cycle: profiles are provisioned by
// the onboarding flow before requalification can run.
type ProfileNotFoundError struct {
	CustomerID int64
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("no profile for customer %d", e.CustomerID)
}

// ExternalServiceError wraps a failed LLM call (network, timeout, or a
// malformed reply). Fatal for the current cycle; retry policy belongs
// to the caller.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// PersistenceError wraps a database failure in the read or write phase.
// Write-phase errors are reported after the transaction rolled back.
type PersistenceError struct {
	Phase string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s phase: %v", e.Phase, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
