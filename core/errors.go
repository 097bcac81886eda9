package core

import (
	"errors"

	"github.com/huangsam/qualgate/internal/contract"
)

// ErrNoCategories is returned when a category request resolves to nothing.
var ErrNoCategories = contract.NewConfigurationError("determine categories", errors.New("no valid categories requested"))

// panicError carries a value recovered from a panicking analyzer.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return "analyzer panicked: " + formatPanic(e.value)
}

// ErrGatesBlocked is returned by a check whose gate report blocks the pipeline.
var ErrGatesBlocked = errors.New("quality gates blocked the pipeline")
