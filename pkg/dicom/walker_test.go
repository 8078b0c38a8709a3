package dicom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
	"github.com/jpfielding/dicomwsi/pkg/dicom/vr"
)

type capturedValue struct {
	path []tag.Tag
	vr   vr.VR
	data []byte
}

func collectHandler(out *[]capturedValue) Handler {
	return func(path []tag.Tag, valueVR vr.VR, src *Source) error {
		buf := make([]byte, src.Size())
		if _, err := src.Read(buf); err != nil {
			return err
		}
		*out = append(*out, capturedValue{path: append([]tag.Tag(nil), path...), vr: valueVR, data: buf})
		return nil
	}
}

func TestWalker_DefinedLengthSequenceSkippedWhenUnmatched(t *testing.T) {
	// A sibling element followed by a defined-length SQ containing one item
	// with a CS element. No path is registered into the sequence, so it must
	// be skipped wholesale; only the sibling reaches the handler.
	item := shortFormElement(0x0008, 0x0100, "CS", []byte("A-00118"))
	var seqValue bytes.Buffer
	seqValue.Write(leUint16(tag.Item.Group))
	seqValue.Write(leUint16(tag.Item.Element))
	seqValue.Write(leUint32(uint32(len(item))))
	seqValue.Write(item)

	var buf bytes.Buffer
	buf.Write(shortFormElement(0x0008, 0x0060, "CS", []byte("SM")))
	buf.Write(longFormElement(0x0048, 0x0105, "SQ", uint32(seqValue.Len()), seqValue.Bytes()))

	var captured []capturedValue
	var set TagPathSet
	set.Add([]tag.Tag{tag.Modality})
	w := newWalker(&set, collectHandler(&captured))

	var tp TagPath
	require.NoError(t, w.walkDataset(&buf, &tp))
	require.Len(t, captured, 1)
	assert.Equal(t, []tag.Tag{tag.Modality}, captured[0].path)
}

func TestWalker_DescendsIntoMatchingDefinedLengthSequence(t *testing.T) {
	item := shortFormElement(0x0008, 0x0100, "CS", []byte("A-00118 "))
	var seqValue bytes.Buffer
	seqValue.Write(leUint16(tag.Item.Group))
	seqValue.Write(leUint16(tag.Item.Element))
	seqValue.Write(leUint32(uint32(len(item))))
	seqValue.Write(item)

	raw := longFormElement(tag.OpticalPathSequence.Group, tag.OpticalPathSequence.Element, "SQ", uint32(seqValue.Len()), seqValue.Bytes())

	var captured []capturedValue
	var set TagPathSet
	set.Add([]tag.Tag{tag.OpticalPathSequence, tag.CodeValue})
	w := newWalker(&set, collectHandler(&captured))

	var tp TagPath
	require.NoError(t, w.walkDataset(bytes.NewReader(raw), &tp))
	require.Len(t, captured, 1)
	assert.Equal(t, "A-00118 ", string(captured[0].data))
}

func TestWalker_UndefinedLengthItem(t *testing.T) {
	inner := shortFormElement(0x0008, 0x0100, "CS", []byte("A-00118"))

	var seqValue bytes.Buffer
	seqValue.Write(leUint16(tag.Item.Group))
	seqValue.Write(leUint16(tag.Item.Element))
	seqValue.Write(leUint32(undefinedLength))
	seqValue.Write(inner)
	seqValue.Write(leUint16(tag.ItemDelimitationItem.Group))
	seqValue.Write(leUint16(tag.ItemDelimitationItem.Element))
	seqValue.Write(leUint32(0))
	seqValue.Write(leUint16(tag.SequenceDelimitationItem.Group))
	seqValue.Write(leUint16(tag.SequenceDelimitationItem.Element))
	seqValue.Write(leUint32(0))

	var buf bytes.Buffer
	buf.Write(leUint16(tag.OpticalPathSequence.Group))
	buf.Write(leUint16(tag.OpticalPathSequence.Element))
	buf.WriteString("SQ")
	buf.Write(leUint16(0))
	buf.Write(leUint32(undefinedLength))
	buf.Write(seqValue.Bytes())

	var captured []capturedValue
	var set TagPathSet
	set.Add([]tag.Tag{tag.OpticalPathSequence, tag.CodeValue})
	w := newWalker(&set, collectHandler(&captured))

	var tp TagPath
	require.NoError(t, w.walkDataset(&buf, &tp))
	require.Len(t, captured, 1)
	assert.Equal(t, "A-00118", string(captured[0].data))
}

func TestWalker_EncapsulatedPixelDataDiscardsOffsetTable(t *testing.T) {
	bot := []byte{}
	frag0 := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	frag1 := []byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}

	var val bytes.Buffer
	writeFragmentItem := func(data []byte) {
		val.Write(leUint16(tag.Item.Group))
		val.Write(leUint16(tag.Item.Element))
		val.Write(leUint32(uint32(len(data))))
		val.Write(data)
	}
	writeFragmentItem(bot)
	writeFragmentItem(frag0)
	writeFragmentItem(frag1)
	val.Write(leUint16(tag.SequenceDelimitationItem.Group))
	val.Write(leUint16(tag.SequenceDelimitationItem.Element))
	val.Write(leUint32(0))

	var buf bytes.Buffer
	buf.Write(leUint16(tag.PixelData.Group))
	buf.Write(leUint16(tag.PixelData.Element))
	buf.WriteString("OB")
	buf.Write(leUint16(0))
	buf.Write(leUint32(undefinedLength))
	buf.Write(val.Bytes())

	var captured []capturedValue
	var set TagPathSet
	set.Add([]tag.Tag{tag.PixelData})
	w := newWalker(&set, collectHandler(&captured))

	var tp TagPath
	require.NoError(t, w.walkDataset(&buf, &tp))
	require.Len(t, captured, 2, "the Basic Offset Table must not be surfaced to the handler")
	assert.Equal(t, frag0, captured[0].data)
	assert.Equal(t, frag1, captured[1].data)
}

func TestWalker_OutOfOrderTagsIsOrderViolation(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(shortFormElement(0x0008, 0x0060, "CS", []byte("SM")))
	buf.Write(shortFormElement(0x0008, 0x0016, "UI", []byte("1.2")))

	var set TagPathSet
	w := newWalker(&set, func([]tag.Tag, vr.VR, *Source) error { return nil })

	var tp TagPath
	err := w.walkDataset(&buf, &tp)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OrderViolation, pe.Kind)
}

func TestWalker_UndefinedLengthNonSequenceIsStructuralViolation(t *testing.T) {
	raw := longFormElement(0x0008, 0x9999, "OB", undefinedLength, nil)
	var set TagPathSet
	w := newWalker(&set, func([]tag.Tag, vr.VR, *Source) error { return nil })

	var tp TagPath
	err := w.walkDataset(bytes.NewReader(raw), &tp)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StructuralViolation, pe.Kind)
}
