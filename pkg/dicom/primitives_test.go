package dicom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
	"github.com/jpfielding/dicomwsi/pkg/dicom/vr"
)

// leUint16/leUint32 build little-endian element bytes for test fixtures.
func leUint16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func leUint32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func shortFormElement(group, elem uint16, vrCode string, value []byte) []byte {
	var buf bytes.Buffer
	buf.Write(leUint16(group))
	buf.Write(leUint16(elem))
	buf.WriteString(vrCode)
	buf.Write(leUint16(uint16(len(value))))
	buf.Write(value)
	return buf.Bytes()
}

func longFormElement(group, elem uint16, vrCode string, vl uint32, value []byte) []byte {
	var buf bytes.Buffer
	buf.Write(leUint16(group))
	buf.Write(leUint16(elem))
	buf.WriteString(vrCode)
	buf.Write(leUint16(0)) // reserved
	buf.Write(leUint32(vl))
	buf.Write(value)
	return buf.Bytes()
}

func TestReadExplicit_ShortForm(t *testing.T) {
	raw := shortFormElement(0x0008, 0x0060, "CS", []byte("SM"))
	e, ok, err := readExplicit(bytes.NewReader(raw))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tag.Modality, e.Tag)
	assert.Equal(t, vr.CS, e.VR)
	assert.EqualValues(t, 2, e.VL)
}

func TestReadExplicit_LongForm(t *testing.T) {
	raw := longFormElement(0x7FE0, 0x0010, "OB", 4, []byte{1, 2, 3, 4})
	e, ok, err := readExplicit(bytes.NewReader(raw))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tag.PixelData, e.Tag)
	assert.Equal(t, vr.OB, e.VR)
	assert.EqualValues(t, 4, e.VL)
}

func TestReadExplicit_CleanEOF(t *testing.T) {
	_, ok, err := readExplicit(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadExplicit_TruncatedHeaderIsError(t *testing.T) {
	raw := shortFormElement(0x0008, 0x0060, "CS", []byte("SM"))
	_, _, err := readExplicit(bytes.NewReader(raw[:3]))
	assert.Error(t, err)
}

func TestReadExplicit_InvalidVRBytesIsBadHeader(t *testing.T) {
	raw := []byte{0x08, 0x00, 0x60, 0x00, '1', '2', 0x00, 0x00}
	_, _, err := readExplicit(bytes.NewReader(raw))
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, BadHeader, pe.Kind)
}

func TestReadExplicit_NonZeroReservedIsBadHeader(t *testing.T) {
	raw := []byte{0xE0, 0x7F, 0x10, 0x00, 'O', 'B', 0x01, 0x00, 0x04, 0x00, 0x00, 0x00}
	_, _, err := readExplicit(bytes.NewReader(raw))
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, BadHeader, pe.Kind)
}

func TestReadExplicitOrItemDelimiter_ItemDelimitationFastPath(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(leUint16(tag.ItemDelimitationItem.Group))
	buf.Write(leUint16(tag.ItemDelimitationItem.Element))
	buf.Write(leUint32(0))
	e, err := readExplicitOrItemDelimiter(&buf)
	require.NoError(t, err)
	assert.Equal(t, tag.ItemDelimitationItem, e.Tag)
	assert.Equal(t, vr.Invalid, e.VR)
}

func TestReadExplicitOrItemDelimiter_NonZeroLengthDelimiterIsError(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(leUint16(tag.ItemDelimitationItem.Group))
	buf.Write(leUint16(tag.ItemDelimitationItem.Element))
	buf.Write(leUint32(4))
	_, err := readExplicitOrItemDelimiter(&buf)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, BadHeader, pe.Kind)
}

func TestReadDelimiterHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(leUint16(tag.Item.Group))
	buf.Write(leUint16(tag.Item.Element))
	buf.Write(leUint32(undefinedLength))
	e, err := readDelimiterHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, tag.Item, e.Tag)
	assert.True(t, e.isUndefinedLength())
}
