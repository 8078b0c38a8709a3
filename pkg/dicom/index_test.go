package dicom

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
)

func writeDicomFile(t *testing.T, dataset []byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, preambleLen))
	buf.WriteString("DICM")
	metaBody := []byte("synthetic file meta body")
	buf.Write(longFormElementUL(0x0002, 0x0000, uint32(len(metaBody))))
	buf.Write(metaBody)
	buf.Write(dataset)

	path := filepath.Join(t.TempDir(), "synthetic.dcm")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func directoryRecordItem(referencedFileID string) []byte {
	value := shortFormElement(tag.ReferencedFileID.Group, tag.ReferencedFileID.Element, "CS", []byte(referencedFileID))
	var item bytes.Buffer
	item.Write(leUint16(tag.Item.Group))
	item.Write(leUint16(tag.Item.Element))
	item.Write(leUint32(uint32(len(value))))
	item.Write(value)
	return item.Bytes()
}

func TestReadIndex_ListsReferencedFiles(t *testing.T) {
	var seqValue bytes.Buffer
	seqValue.Write(directoryRecordItem("DICOM\\FILES\\IM000001"))
	seqValue.Write(directoryRecordItem("DICOM\\FILES\\IM000002 "))

	dataset := longFormElement(tag.DirectoryRecordSequence.Group, tag.DirectoryRecordSequence.Element,
		"SQ", uint32(seqValue.Len()), seqValue.Bytes())

	path := writeDicomFile(t, dataset)
	files, err := ReadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DICOM/FILES/IM000001", "DICOM/FILES/IM000002"}, files)
}

func TestReadIndex_BadMagicPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dcm")
	require.NoError(t, os.WriteFile(path, append(make([]byte, preambleLen), []byte("NOPE")...), 0o644))

	_, err := ReadIndex(path)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, BadMagic, pe.Kind)
}

func TestDecodeFileID(t *testing.T) {
	assert.Equal(t, "A/B/C", decodeFileID([]byte("A\\B\\C ")))
	assert.Equal(t, "SINGLE", decodeFileID([]byte("SINGLE")))
}
