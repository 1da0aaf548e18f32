package frames

import "errors"

var (
	// ErrUnknownFrame is returned when an id does not name a frame in the
	// hierarchy.
	ErrUnknownFrame = errors.New("unknown frame")

	// ErrRootImmutable is returned for operations that would remove, move or
	// duplicate the root frame.
	ErrRootImmutable = errors.New("root frame cannot be changed this way")

	// ErrNoParent is returned when an operation needs the frame's parent and
	// the frame has none.
	ErrNoParent = errors.New("frame has no parent")

	// ErrCycle is returned when a reparent would make a frame its own ancestor.
	ErrCycle = errors.New("parent assignment would create a cycle")

	// ErrNonFinite is returned when a position or rotation component is NaN or
	// infinite.
	ErrNonFinite = errors.New("non-finite value")

	// ErrBlankName is returned when a frame would be given an empty name.
	ErrBlankName = errors.New("frame name is blank")

	// ErrMalformedDocument is returned when a document cannot be turned into a
	// single-rooted tree.
	ErrMalformedDocument = errors.New("malformed frame document")
)
