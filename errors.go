package typedarena

import "github.com/pkg/errors"

var (
	// ErrCapacityOverflow is raised when the next chunk capacity cannot be
	// represented as an int.
	ErrCapacityOverflow = errors.New("typedarena: capacity overflow")

	// ErrReleased is raised when an arena is used after Release.
	ErrReleased = errors.New("typedarena: use after Release()")

	// ErrAlreadyBorrowed is raised when an Arena is entered while another
	// call on it is still running, typically from inside the sequence
	// passed to AllocExtend.
	ErrAlreadyBorrowed = errors.New("typedarena: arena already borrowed")
)
