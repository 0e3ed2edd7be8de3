package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned for non-positive lengths or quantities
	// and for records that cannot be interpreted.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInfeasibleModel matches every *InfeasibleModelError.
	ErrInfeasibleModel = errors.New("infeasible model")
)

// InfeasibleModelError reports a model whose longest piece does not fit on
// its longest stock bar.
type InfeasibleModelError struct {
	ModelKey       string
	PieceLength    int
	MaxStockLength int
}

func (e *InfeasibleModelError) Error() string {
	if e.MaxStockLength == 0 {
		return fmt.Sprintf("model %s: no stock bars for piece length %d", e.ModelKey, e.PieceLength)
	}
	return fmt.Sprintf("model %s: piece length %d exceeds longest stock bar %d",
		e.ModelKey, e.PieceLength, e.MaxStockLength)
}

func (e *InfeasibleModelError) Is(target error) bool {
	return target == ErrInfeasibleModel
}
