// Package agenterr implements the error taxonomy in spec.md §7: a closed set
// of kinds, not a closed set of types, wrapped so callers can still use
// errors.Is/errors.As against the underlying cause.
package agenterr

import (
	"errors"
	"fmt"
)

// Kind names a category of failure. Kinds are not mutually exclusive with Go
// error types - an AgentError wraps whatever underlying error occurred.
type Kind int

const (
	// IOError is a filesystem read/write failure.
	IOError Kind = iota
	// ParseError is a corrupt or unreadable replay archive.
	ParseError
	// NetworkError is a transport failure or non-2xx HTTP response.
	NetworkError
	// DuplicateReplay marks a 409 / REPLAY_DUPLICATE response, treated as success.
	DuplicateReplay
	// StateCorrupted marks a tracker file that failed to parse at load time.
	StateCorrupted
	// Concurrency marks mutex poisoning recovery; never fatal.
	Concurrency
	// ConfigMissing marks a required directory or file that is absent.
	ConfigMissing
)

func (k Kind) String() string {
	switch k {
	case IOError:
		return "io_error"
	case ParseError:
		return "parse_error"
	case NetworkError:
		return "network_error"
	case DuplicateReplay:
		return "duplicate_replay"
	case StateCorrupted:
		return "state_corrupted"
	case Concurrency:
		return "concurrency"
	case ConfigMissing:
		return "config_missing"
	default:
		return "unknown"
	}
}

// AgentError associates a Kind and an operation name with an underlying cause.
type AgentError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *AgentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// New wraps err with the given kind and operation name. Returns nil if err is nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AgentError{Kind: kind, Op: op, Err: err}
}

// Is reports whether the first AgentError in err's chain has the given Kind.
func Is(err error, kind Kind) bool {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
