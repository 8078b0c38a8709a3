package dicom

import (
	"encoding/binary"
	"io"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
)

const preambleLen = 128

var dicmMagic = [4]byte{'D', 'I', 'C', 'M'}

// readPreambleAndMeta skips the 128-byte preamble, verifies the DICM
// magic, then reads and skips the File Meta Information group named by
// the group-length element (0002,0000). Per spec.md §4.5, the file meta
// group's internal structure is never interpreted further — it is
// skipped in bulk once its length is known.
func readPreambleAndMeta(r io.Reader) error {
	if err := skipReader(r, preambleLen); err != nil {
		return newParseError(IO, nil, "reading preamble: %w", err)
	}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return newParseError(IO, nil, "reading DICM magic: %w", err)
	}
	if magic != dicmMagic {
		return newParseError(BadMagic, nil, "expected %q, got %q", dicmMagic[:], magic[:])
	}

	e, ok, err := readExplicit(r)
	if err != nil {
		return newParseError(IO, nil, "reading file meta group length header: %w", err)
	}
	if !ok {
		return newParseError(BadHeader, nil, "file meta group length element is missing")
	}
	if !e.Tag.Equals(tag.FileMetaInformationGroupLength) {
		return newParseError(BadHeader, []tag.Tag{e.Tag}, "expected file meta group length tag %s, got %s",
			tag.FileMetaInformationGroupLength, e.Tag)
	}
	if e.isUndefinedLength() {
		return newParseError(StructuralViolation, []tag.Tag{e.Tag}, "file meta group length element has undefined length")
	}

	var groupLen uint32
	if err := binary.Read(newSource(r, e.VL).Reader(), binary.LittleEndian, &groupLen); err != nil {
		return newParseError(IO, []tag.Tag{e.Tag}, "reading file meta group length value: %w", err)
	}

	return skipReader(r, groupLen)
}
