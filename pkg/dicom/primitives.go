package dicom

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
	"github.com/jpfielding/dicomwsi/pkg/dicom/vr"
)

// element is the decoded header of a single data element: {tag, vr, vl}.
// VL == undefinedLength denotes undefined length (spec.md §3).
type element struct {
	Tag tag.Tag
	VR  vr.VR
	VL  uint32
}

const undefinedLength uint32 = 0xFFFFFFFF

func (e element) isUndefinedLength() bool {
	return e.VL == undefinedLength
}

// readTag reads a 32-bit tag from two little-endian 16-bit words and
// normalizes it to host order (group<<16 | element), per spec.md §3.
func readTag(r io.Reader) (tag.Tag, error) {
	var group, elem uint16
	if err := binary.Read(r, binary.LittleEndian, &group); err != nil {
		return tag.Tag{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &elem); err != nil {
		if errors.Is(err, io.EOF) {
			// the group word was already consumed: this is a truncated tag
			err = io.ErrUnexpectedEOF
		}
		return tag.Tag{}, err
	}
	return tag.Tag{Group: group, Element: elem}, nil
}

// readExplicit reads one data-element header in Explicit VR framing,
// spec.md §4.2 case 1. It is the reader used at the top of the main
// dataset and within defined-length items, and is the only reader whose
// EOF return signals the top-level loop to stop.
//
// Returns ok=false (no error) on a clean EOF before any bytes of a new
// header were consumed — the top-level loop's termination condition.
func readExplicit(r io.Reader) (element, bool, error) {
	t, err := readTag(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return element{}, false, nil
		}
		return element{}, false, err
	}

	var vrBytes [2]byte
	if _, err := io.ReadFull(r, vrBytes[:]); err != nil {
		return element{}, false, err
	}
	if !vr.Valid(vrBytes) {
		return element{}, false, &ParseError{Kind: BadHeader, Err: errInvalidVRBytes(vrBytes)}
	}
	elemVR := vr.VR(vrBytes[:])

	vl, err := readVL(r, elemVR)
	if err != nil {
		return element{}, false, err
	}
	return element{Tag: t, VR: elemVR, VL: vl}, true, nil
}

// readExplicitOrItemDelimiter reads one header inside an undefined-length
// item: Explicit VR framing, except that an Item Delimitation tag takes
// the delimiter fast path (tag(4) | VL(4), VR set to vr.Invalid).
// Spec.md §4.2 case 2.
func readExplicitOrItemDelimiter(r io.Reader) (element, error) {
	t, err := readTag(r)
	if err != nil {
		return element{}, err
	}
	if t.Equals(tag.ItemDelimitationItem) {
		var vl uint32
		if err := binary.Read(r, binary.LittleEndian, &vl); err != nil {
			return element{}, err
		}
		if vl != 0 {
			return element{}, &ParseError{Kind: BadHeader, Err: errNonZeroDelimiterLength(t, vl)}
		}
		return element{Tag: t, VR: vr.Invalid, VL: vl}, nil
	}

	var vrBytes [2]byte
	if _, err := io.ReadFull(r, vrBytes[:]); err != nil {
		return element{}, err
	}
	if !vr.Valid(vrBytes) {
		return element{}, &ParseError{Kind: BadHeader, Err: errInvalidVRBytes(vrBytes)}
	}
	elemVR := vr.VR(vrBytes[:])

	vl, err := readVL(r, elemVR)
	if err != nil {
		return element{}, err
	}
	return element{Tag: t, VR: elemVR, VL: vl}, nil
}

// readDelimiterHeader reads an implicit-framed header: tag(4) | VL(4), VR
// set to vr.Invalid. Used for the FFFE-group headers of sequences and
// encapsulated pixel data (item-start and sequence-delimitation); the
// item-delimitation header that closes an undefined-length item is read by
// readExplicitOrItemDelimiter instead. Spec.md §4.2 case 3.
func readDelimiterHeader(r io.Reader) (element, error) {
	t, err := readTag(r)
	if err != nil {
		return element{}, err
	}
	var vl uint32
	if err := binary.Read(r, binary.LittleEndian, &vl); err != nil {
		return element{}, err
	}
	return element{Tag: t, VR: vr.Invalid, VL: vl}, nil
}

func readVL(r io.Reader, elemVR vr.VR) (uint32, error) {
	if vr.IsLongForm(elemVR) {
		var reserved uint16
		if err := binary.Read(r, binary.LittleEndian, &reserved); err != nil {
			return 0, err
		}
		if reserved != 0 {
			return 0, &ParseError{Kind: BadHeader, Err: errNonZeroReserved(elemVR, reserved)}
		}
		var vl uint32
		if err := binary.Read(r, binary.LittleEndian, &vl); err != nil {
			return 0, err
		}
		return vl, nil
	}
	var vl16 uint16
	if err := binary.Read(r, binary.LittleEndian, &vl16); err != nil {
		return 0, err
	}
	return uint32(vl16), nil
}
