package rag

import (
	"context"
	"errors"
	"fmt"
)

type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindRetrieval
	KindGeneration
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindRetrieval:
		return "retrieval"
	case KindGeneration:
		return "generation"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

const (
	StageInput    = "input"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageInternal = "internal"
)

// Error is returned by Pipeline.Answer for every failure.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether asking the same question again may succeed.
// Cancellation, invalid input and internal errors are final.
func IsRecoverable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.Kind == KindRetrieval || rerr.Kind == KindGeneration
}
