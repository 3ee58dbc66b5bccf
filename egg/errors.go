package egg

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipped is returned when options exclude the whole file.
	ErrSkipped = errors.New("egg: skipped")
	// ErrIndexRemap means a submesh references a vertex that was not collected for its mesh.
	ErrIndexRemap = errors.New("egg: index remap failed")
	// ErrNoSkeleton is returned when skinning is requested without joints.
	ErrNoSkeleton = errors.New("egg: no skeleton")

	errTooFewValues = errors.New("too few values")
	errNotFinite    = errors.New("not a finite number")
)

// ParseError reports a malformed number. It aborts the import.
type ParseError struct {
	Line int
	Tag  string
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: <%s> %q: %v", e.Line, e.Tag, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StructureError reports a malformed block. The block is skipped and the import continues.
type StructureError struct {
	Line int
	Msg  string
}

func (e *StructureError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}
