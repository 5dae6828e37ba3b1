package stats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidNode is returned for handles that do not name a live node.
	ErrInvalidNode = eris.New("stats: invalid node")
	// ErrLengthMismatch is returned by UpdateChildren when values and weights differ in length.
	ErrLengthMismatch = eris.New("stats: values and weights differ in length")
	// ErrZeroWeight is returned when sampling or normalizing children whose weights sum to zero.
	ErrZeroWeight = eris.New("stats: children have zero total weight")
	// ErrEmptyTree is returned when sampling a tree without branches.
	ErrEmptyTree = eris.New("stats: tree has no branches")
	// ErrNotEmpty is returned when the attribute order changes after branches exist.
	ErrNotEmpty = eris.New("stats: tree is not empty")
)

// ConflictError rejects a graft that would repeat an attribute along a root-to-leaf path.
type ConflictError struct {
	Attribute string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stats: attribute %q already on branch path", e.Attribute)
}

// IsConflict reports whether err (or any error in its chain) is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ValidationError lists every problem found by Tree.Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "stats: invalid tree: " + strings.Join(e.Problems, "; ")
}
