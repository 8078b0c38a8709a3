package dicom

import (
	"fmt"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
	"github.com/jpfielding/dicomwsi/pkg/dicom/transfer"
)

// ErrorKind classifies a parse failure, per spec.md §7.
type ErrorKind int

const (
	// IO covers underlying read/seek/open failures, and EOF arriving
	// inside a declared length.
	IO ErrorKind = iota
	// BadMagic means the DICM preamble check failed.
	BadMagic
	// BadHeader covers invalid VR bytes, a non-zero reserved word on a
	// long-form VR, or a delimiter carrying non-zero length.
	BadHeader
	// OrderViolation means a tag was not strictly increasing within its
	// scope.
	OrderViolation
	// UnsupportedSyntax means a UN undefined-length attribute or other
	// construct requiring Implicit VR was encountered.
	UnsupportedSyntax
	// StructuralViolation means a nested length exceeded its enclosing
	// length, or a required delimiter was missing.
	StructuralViolation
	// Closed means a call was made on a Parser after Close.
	Closed
)

func (k ErrorKind) String() string {
	switch k {
	case IO:
		return "IO"
	case BadMagic:
		return "BadMagic"
	case BadHeader:
		return "BadHeader"
	case OrderViolation:
		return "OrderViolation"
	case UnsupportedSyntax:
		return "UnsupportedSyntax"
	case StructuralViolation:
		return "StructuralViolation"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ParseError is the structured error this package returns for failures it
// detects itself while opening and reading a file, per spec.md §6/§7. All
// parse failures are fatal to the current parse; there is no per-element
// recovery. An error returned by a Handler is passed back from Parse as it
// is, not wrapped in a ParseError, and so are the plain errors for a Parse
// without a handler and a RegisterPath with an empty path.
type ParseError struct {
	Kind ErrorKind
	Path []tag.Tag
	Err  error
}

func (e *ParseError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, pathString(e.Path), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func pathString(path []tag.Tag) string {
	s := ""
	for i, t := range path {
		if i > 0 {
			s += ">"
		}
		s += t.String()
	}
	return s
}

func newParseError(kind ErrorKind, path []tag.Tag, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Path: append([]tag.Tag(nil), path...), Err: fmt.Errorf(format, args...)}
}

func errUnsupportedSyntax(path []tag.Tag, format string, args ...any) *ParseError {
	args = append(args, transfer.ExplicitVRLittleEndian)
	return newParseError(UnsupportedSyntax, path, format+" (only %s is supported)", args...)
}

func errInvalidVRBytes(b [2]byte) error {
	return fmt.Errorf("invalid VR bytes %q: both must be uppercase ASCII letters", b[:])
}

func errNonZeroDelimiterLength(t tag.Tag, vl uint32) error {
	return fmt.Errorf("delimiter %s carries non-zero length %d", t, vl)
}

func errNonZeroReserved(v interface{ String() string }, reserved uint16) error {
	return fmt.Errorf("non-zero reserved word %#04x for long-form VR %s", reserved, v)
}
