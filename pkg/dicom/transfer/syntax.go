// Package transfer names the one transfer syntax this parser understands.
//
// Negotiating or supporting any other transfer syntax is explicitly out of
// scope (spec.md §1): Implicit VR and Explicit VR Big Endian data sets are
// not parsed, so UN-typed undefined-length attributes (which require an
// Implicit→Explicit conversion to arise) are a hard parse error rather
// than a decoding path.
package transfer

// Syntax is a DICOM transfer syntax UID.
type Syntax string

// ExplicitVRLittleEndian is the only transfer syntax this parser's main
// dataset reader supports.
const ExplicitVRLittleEndian Syntax = "1.2.840.10008.1.2.1"

// String returns the raw UID.
func (s Syntax) String() string {
	return string(s)
}
