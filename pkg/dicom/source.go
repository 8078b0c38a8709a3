package dicom

import (
	"io"
)

// Source is a handle scoped to a single element's declared value length.
// It is valid only for the duration of the handler call that receives it;
// callers that need to retain bytes read through it must copy them.
//
// Grounded on the original C parser's `source`/`init_source`/`source_read`/
// `source_skip` (openslide-decode-dicom.c).
type Source struct {
	r      io.Reader
	maxLen uint32
	curPos uint32
}

func newSource(r io.Reader, maxLen uint32) *Source {
	return &Source{r: r, maxLen: maxLen}
}

// Size returns the declared value length.
func (s *Source) Size() uint32 {
	return s.maxLen
}

// Remaining returns the number of bytes not yet read or skipped.
func (s *Source) Remaining() uint32 {
	return s.maxLen - s.curPos
}

// Read attempts to read exactly len(buf) bytes. cur_pos is clamped to
// max_len regardless of the underlying read outcome, matching spec.md
// §4.1 ("clamping cur_pos to max_len regardless of underlying read
// outcome").
func (s *Source) Read(buf []byte) (bool, error) {
	n := uint32(len(buf))
	avail := s.Remaining()
	toRead := n
	if toRead > avail {
		toRead = avail
	}
	read, err := io.ReadFull(s.r, buf[:toRead])
	s.curPos += min32(uint32(read), avail)
	if err != nil {
		return false, err
	}
	return toRead == n, nil
}

// Skip advances the underlying stream by min(n, remaining).
func (s *Source) Skip(n uint32) error {
	avail := s.Remaining()
	toSkip := n
	if toSkip > avail {
		toSkip = avail
	}
	if toSkip == 0 {
		return nil
	}
	if seeker, ok := s.r.(io.Seeker); ok {
		if _, err := seeker.Seek(int64(toSkip), io.SeekCurrent); err != nil {
			return err
		}
	} else if _, err := io.CopyN(io.Discard, s.r, int64(toSkip)); err != nil {
		return err
	}
	s.curPos += toSkip
	return nil
}

// skipToEnd advances past whatever the handler left unread, so the stream
// always sits on the next element header after a handler call returns,
// regardless of how many bytes the handler actually consumed.
func (s *Source) skipToEnd() error {
	return s.Skip(s.Remaining())
}

// Reader adapts s to io.Reader, bounding every read to Remaining(). Used to
// feed the primitive element readers when they operate inside a scope
// that's already bounded by an enclosing item or sequence length.
func (s *Source) Reader() io.Reader { return sourceReader{s} }

type sourceReader struct{ s *Source }

func (r sourceReader) Read(p []byte) (int, error) {
	avail := r.s.Remaining()
	if avail == 0 {
		return 0, io.EOF
	}
	toRead := uint32(len(p))
	if toRead > avail {
		toRead = avail
	}
	if _, err := r.s.Read(p[:toRead]); err != nil {
		return 0, err
	}
	return int(toRead), nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
