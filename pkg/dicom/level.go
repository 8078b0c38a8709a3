package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
	"github.com/jpfielding/dicomwsi/pkg/dicom/vr"
	"github.com/jpfielding/dicomwsi/pkg/util"
)

// overviewLensCodeValue is the Code Value identifying an overview (label/
// macro) optical path's lens, read off the Illumination/Lenses Code
// Sequence nested under Optical Path Sequence. Grounded on the trailing
// comment block of openslide-decode-dicom.c.
const overviewLensCodeValue = "A-00118"

// Tile locates one frame's encoded pixel fragment within the file.
type Tile struct {
	Index  int
	Offset int64
	Length uint32
}

// Level describes one VL Whole Slide Microscopy Image Storage instance:
// its tile grid geometry, a content fingerprint, and the fragment table
// needed to fetch any tile's bytes without re-parsing the file.
type Level struct {
	TotalPixelMatrixColumns uint32
	TotalPixelMatrixRows    uint32
	TileWidth               uint32
	TileHeight              uint32
	NumberOfFrames          uint32
	TilesAcross             uint32
	TilesDown               uint32
	IsOverview              bool
	Fingerprint             string
	FingerprintUUID         uuid.UUID
	Tiles                   []Tile
}

// ReadLevel parses a VL Whole Slide Microscopy Image Storage instance and
// extracts its geometry, fingerprint, and tile fragment table.
func ReadLevel(path string) (*Level, error) {
	p, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	paths := [][]tag.Tag{
		{tag.StudyInstanceUID},
		{tag.NumberOfFrames},
		{tag.TotalPixelMatrixColumns},
		{tag.TotalPixelMatrixRows},
		{tag.Rows},
		{tag.Columns},
		{tag.OpticalPathSequence, tag.IlluminationSequence, tag.LensesCodeSequence, tag.CodeValue},
		{tag.PixelData},
	}
	for _, tp := range paths {
		if err := p.RegisterPath(tp...); err != nil {
			return nil, err
		}
	}

	lvl := &Level{}
	var studyInstanceUID string
	tileIndex := 0

	p.SetHandler(func(path []tag.Tag, valueVR vr.VR, src *Source) error {
		leaf := path[len(path)-1]
		switch {
		case leaf.Equals(tag.StudyInstanceUID):
			return readTrimmedString(src, &studyInstanceUID)
		case leaf.Equals(tag.NumberOfFrames):
			return readUS32(src, valueVR, &lvl.NumberOfFrames)
		case leaf.Equals(tag.TotalPixelMatrixColumns):
			return readUS32(src, valueVR, &lvl.TotalPixelMatrixColumns)
		case leaf.Equals(tag.TotalPixelMatrixRows):
			return readUS32(src, valueVR, &lvl.TotalPixelMatrixRows)
		case leaf.Equals(tag.Rows):
			return readUS32(src, valueVR, &lvl.TileHeight)
		case leaf.Equals(tag.Columns):
			return readUS32(src, valueVR, &lvl.TileWidth)
		case leaf.Equals(tag.CodeValue):
			var code string
			if err := readTrimmedString(src, &code); err != nil {
				return err
			}
			if code == overviewLensCodeValue {
				lvl.IsOverview = true
			}
			return nil
		case leaf.Equals(tag.PixelData):
			offset, err := p.file.Seek(0, io.SeekCurrent)
			if err != nil {
				return err
			}
			lvl.Tiles = append(lvl.Tiles, Tile{Index: tileIndex, Offset: offset, Length: src.Size()})
			tileIndex++
			return nil
		}
		return nil
	})

	if err := p.Parse(); err != nil {
		return nil, err
	}

	if lvl.TileWidth > 0 && lvl.TileHeight > 0 {
		lvl.TilesAcross = ceilDiv(lvl.TotalPixelMatrixColumns, lvl.TileWidth)
		lvl.TilesDown = ceilDiv(lvl.TotalPixelMatrixRows, lvl.TileHeight)
	}
	if lvl.TilesAcross*lvl.TilesDown != lvl.NumberOfFrames {
		return nil, newParseError(StructuralViolation, nil,
			"tile grid %dx%d (%d tiles) does not match Number of Frames %d",
			lvl.TilesAcross, lvl.TilesDown, lvl.TilesAcross*lvl.TilesDown, lvl.NumberOfFrames)
	}

	// Quickhash is derived from the instance's Study Instance UID, per
	// spec.md §4.7's fingerprint table.
	lvl.Fingerprint = studyInstanceUID
	lvl.FingerprintUUID = util.HashUUID(studyInstanceUID)

	return lvl, nil
}

func ceilDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

func readTrimmedString(src *Source, out *string) error {
	buf := make([]byte, src.Size())
	if _, err := src.Read(buf); err != nil {
		return err
	}
	*out = strings.TrimRight(string(buf), " \x00")
	return nil
}

// readUS32 reads a US (2-byte), UL (4-byte), or IS (numeric text) integer
// value into out. Number of Frames is conventionally IS; the pixel matrix
// and tile dimensions are US/UL.
func readUS32(src *Source, valueVR vr.VR, out *uint32) error {
	switch valueVR {
	case vr.US:
		var v uint16
		if err := binary.Read(src.Reader(), binary.LittleEndian, &v); err != nil {
			return err
		}
		*out = uint32(v)
	case vr.UL:
		var v uint32
		if err := binary.Read(src.Reader(), binary.LittleEndian, &v); err != nil {
			return err
		}
		*out = v
	case vr.IS:
		buf := make([]byte, src.Size())
		if _, err := src.Read(buf); err != nil {
			return err
		}
		v, err := strconv.Atoi(strings.TrimSpace(string(buf)))
		if err != nil {
			return fmt.Errorf("parsing IS value %q: %w", buf, err)
		}
		*out = uint32(v)
	default:
		return fmt.Errorf("unexpected VR %s for integer value", valueVR)
	}
	return nil
}
