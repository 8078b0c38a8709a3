package dicom

import (
	"io"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
	"github.com/jpfielding/dicomwsi/pkg/dicom/vr"
)

// Handler is called once per element whose tag path exactly matches a
// registered path (spec.md §4.4/§6). For encapsulated Pixel Data it is
// instead called once per fragment after the Basic Offset Table, with
// valueVR set to OB. value is scoped to the element's (or fragment's)
// declared length and becomes invalid once the handler returns.
type Handler func(path []tag.Tag, valueVR vr.VR, value *Source) error

// walker drives the recursive-descent traversal of a data set, consulting
// a TagPathSet both for dispatch (exact match) and for selective descent
// into defined-length sequences (prefix match). Grounded on the control
// flow of read_dataset2/read_item_def/read_item_undef/read_sq_def/
// read_sq_undef/read_encapsulated_pixel_data in
// openslide-decode-dicom.c, reshaped around Go's explicit error returns
// instead of the original's GError out-parameters.
type walker struct {
	paths  *TagPathSet
	handle Handler
}

func newWalker(paths *TagPathSet, handle Handler) *walker {
	return &walker{paths: paths, handle: handle}
}

// maxTopLevelGroup is the highest tag group spec.md §4.4 permits at the
// top level of the main data set — Pixel Data's group. A delimiter
// (group FFFE, which only ever appears framed inside a sequence or item)
// or any group past Pixel Data is a structural violation there.
const maxTopLevelGroup = 0x7FE0

// walkDataset reads top-level elements from r until a clean EOF, per the
// resolved ambiguity in spec.md §9 (read_dataset2's behavior, not
// read_dataset's pixel-data-tag stop condition).
func (w *walker) walkDataset(r io.Reader, tp *TagPath) error {
	var order orderGuard
	for {
		e, ok, err := readExplicit(r)
		if err != nil {
			return w.ioErr(tp, err)
		}
		if !ok {
			return nil
		}
		if e.Tag.IsGroupFFFE() || e.Tag.Group > maxTopLevelGroup {
			return newParseError(StructuralViolation, tp.Tags(), "top-level tag %s has an invalid group", e.Tag)
		}
		if err := order.check(tp, e.Tag); err != nil {
			return err
		}
		if err := w.handleElement(r, tp, e); err != nil {
			return err
		}
	}
}

// orderGuard enforces that sibling tags within one scope (the top-level
// data set, or one item's contents) strictly increase, per spec.md §4's
// ordering invariant.
type orderGuard struct {
	prev tag.Tag
	set  bool
}

func (g *orderGuard) check(tp *TagPath, next tag.Tag) error {
	if g.set && !g.prev.Less(next) {
		return newParseError(OrderViolation, tp.Tags(), "tag %s does not strictly increase after %s", next, g.prev)
	}
	g.prev, g.set = next, true
	return nil
}

// handleElement dispatches a single already-headered element: descends
// into sequences, reports encapsulated pixel data fragments, and invokes
// the handler for matching primitive values. tp is pushed and popped
// around the call so every nested read sees the correct path.
func (w *walker) handleElement(r io.Reader, tp *TagPath, e element) error {
	if err := tp.Push(e.Tag); err != nil {
		return newParseError(StructuralViolation, tp.Tags(), "%w", err)
	}
	defer tp.Pop()

	if e.VR == vr.SQ {
		return w.readSequence(r, tp, e)
	}

	if e.isUndefinedLength() {
		switch {
		case e.VR == vr.UN:
			return errUnsupportedSyntax(tp.Tags(), "undefined-length UN attribute %s requires Implicit VR decoding", e.Tag)
		case e.Tag.Equals(tag.PixelData):
			return w.readEncapsulatedPixelData(r, tp)
		default:
			return newParseError(StructuralViolation, tp.Tags(), "undefined length on non-sequence, non-pixel-data element %s", e.Tag)
		}
	}

	src := newSource(r, e.VL)
	if w.paths.Find(tp) {
		if err := w.handle(tp.Tags(), e.VR, src); err != nil {
			return err
		}
	}
	return src.skipToEnd()
}

// readSequence handles both defined- and undefined-length SQ elements. A
// defined-length sequence that no registered path reaches into is skipped
// wholesale without being parsed at all — the selective-descent
// optimization spec.md §4.4 calls for. An undefined-length sequence must
// always be parsed structurally, since its end can only be found by
// reading through it.
func (w *walker) readSequence(r io.Reader, tp *TagPath, e element) error {
	if !e.isUndefinedLength() && !w.paths.Match(tp) {
		return skipReader(r, e.VL)
	}
	if e.isUndefinedLength() {
		return w.readItemsUntilSeqDelimiter(r, tp)
	}
	src := newSource(r, e.VL)
	if err := w.readItemsBounded(src, tp); err != nil {
		return err
	}
	return src.skipToEnd()
}

func (w *walker) readItemsBounded(src *Source, tp *TagPath) error {
	r := src.Reader()
	for src.Remaining() > 0 {
		item, err := readDelimiterHeader(r)
		if err != nil {
			return w.ioErr(tp, err)
		}
		if !item.Tag.Equals(tag.Item) {
			return newParseError(StructuralViolation, tp.Tags(), "expected item tag, got %s", item.Tag)
		}
		if err := w.readItemContent(r, tp, item.VL); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) readItemsUntilSeqDelimiter(r io.Reader, tp *TagPath) error {
	for {
		hdr, err := readDelimiterHeader(r)
		if err != nil {
			return w.ioErr(tp, err)
		}
		if hdr.Tag.Equals(tag.SequenceDelimitationItem) {
			if hdr.VL != 0 {
				return newParseError(BadHeader, tp.Tags(), "%w", errNonZeroDelimiterLength(hdr.Tag, hdr.VL))
			}
			return nil
		}
		if !hdr.Tag.Equals(tag.Item) {
			return newParseError(StructuralViolation, tp.Tags(), "expected item or sequence delimiter, got %s", hdr.Tag)
		}
		if err := w.readItemContent(r, tp, hdr.VL); err != nil {
			return err
		}
	}
}

func (w *walker) readItemContent(r io.Reader, tp *TagPath, vl uint32) error {
	if vl == undefinedLength {
		return w.readElementsUntilItemDelimiter(r, tp)
	}
	src := newSource(r, vl)
	if err := w.readBoundedDataset(src, tp); err != nil {
		return err
	}
	return src.skipToEnd()
}

func (w *walker) readElementsUntilItemDelimiter(r io.Reader, tp *TagPath) error {
	var order orderGuard
	for {
		e, err := readExplicitOrItemDelimiter(r)
		if err != nil {
			return w.ioErr(tp, err)
		}
		if e.Tag.Equals(tag.ItemDelimitationItem) {
			return nil
		}
		if err := order.check(tp, e.Tag); err != nil {
			return err
		}
		if err := w.handleElement(r, tp, e); err != nil {
			return err
		}
	}
}

func (w *walker) readBoundedDataset(src *Source, tp *TagPath) error {
	r := src.Reader()
	var order orderGuard
	for src.Remaining() > 0 {
		e, ok, err := readExplicit(r)
		if err != nil {
			return w.ioErr(tp, err)
		}
		if !ok {
			return newParseError(IO, tp.Tags(), "unexpected end of stream inside defined-length item")
		}
		if err := order.check(tp, e.Tag); err != nil {
			return err
		}
		if err := w.handleElement(r, tp, e); err != nil {
			return err
		}
	}
	return nil
}

// readEncapsulatedPixelData reads the fragment item stream of an
// undefined-length Pixel Data element. The first item is the Basic
// Offset Table; per spec.md §9 it is read and discarded rather than
// surfaced to the handler, grounded on the original parser's BOT
// handling in read_encapsulated_pixel_data.
func (w *walker) readEncapsulatedPixelData(r io.Reader, tp *TagPath) error {
	first := true
	for {
		hdr, err := readDelimiterHeader(r)
		if err != nil {
			return w.ioErr(tp, err)
		}
		if hdr.Tag.Equals(tag.SequenceDelimitationItem) {
			if hdr.VL != 0 {
				return newParseError(BadHeader, tp.Tags(), "%w", errNonZeroDelimiterLength(hdr.Tag, hdr.VL))
			}
			return nil
		}
		if !hdr.Tag.Equals(tag.Item) {
			return newParseError(StructuralViolation, tp.Tags(), "expected pixel data fragment or sequence delimiter, got %s", hdr.Tag)
		}
		if hdr.VL == undefinedLength {
			return newParseError(StructuralViolation, tp.Tags(), "pixel data fragment item has undefined length")
		}

		src := newSource(r, hdr.VL)
		if !first && w.paths.Find(tp) {
			if err := w.handle(tp.Tags(), vr.OB, src); err != nil {
				return err
			}
		}
		first = false
		if err := src.skipToEnd(); err != nil {
			return err
		}
	}
}

func (w *walker) ioErr(tp *TagPath, err error) error {
	if pe, ok := err.(*ParseError); ok {
		return pe
	}
	return newParseError(IO, tp.Tags(), "%w", err)
}

// skipReader advances r by n bytes, seeking when possible.
func skipReader(r io.Reader, n uint32) error {
	if n == 0 {
		return nil
	}
	if seeker, ok := r.(io.Seeker); ok {
		_, err := seeker.Seek(int64(n), io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r, int64(n))
	return err
}
