package dicom

import (
	"fmt"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
)

// maxPathDepth bounds tag path nesting. DICOM nesting depth in practice is
// small; spec.md §4.3 treats overflow as a hard error rather than growing
// the backing store, grounded on the original C parser's fixed 16-slot
// tag_path (openslide-decode-dicom.c).
const maxPathDepth = 16

// TagPath is the ordered sequence of tags, root-to-leaf, naming the
// current position inside the element tree. It exists for the duration of
// a parse.
type TagPath struct {
	tags [maxPathDepth]tag.Tag
	n    int
}

// Push appends t to the path. Returns an error if the path is already at
// capacity.
func (p *TagPath) Push(t tag.Tag) error {
	if p.n >= maxPathDepth {
		return fmt.Errorf("tag path exceeds maximum nesting depth %d", maxPathDepth)
	}
	p.tags[p.n] = t
	p.n++
	return nil
}

// Pop removes and returns the last tag on the path.
func (p *TagPath) Pop() tag.Tag {
	p.n--
	return p.tags[p.n]
}

// Last returns the last tag on the path.
func (p *TagPath) Last() tag.Tag {
	return p.tags[p.n-1]
}

// Length returns the number of tags on the path.
func (p *TagPath) Length() int {
	return p.n
}

// Tags returns the path's tags, root-to-leaf.
func (p *TagPath) Tags() []tag.Tag {
	return p.tags[:p.n]
}

// Equals reports whether p and other name the same sequence of tags.
func (p *TagPath) Equals(other *TagPath) bool {
	if p.n != other.n {
		return false
	}
	for i := 0; i < p.n; i++ {
		if p.tags[i] != other.tags[i] {
			return false
		}
	}
	return true
}

// equalsTags reports whether p's tags exactly equal the given slice.
func (p *TagPath) equalsTags(other []tag.Tag) bool {
	if p.n != len(other) {
		return false
	}
	for i := 0; i < p.n; i++ {
		if p.tags[i] != other[i] {
			return false
		}
	}
	return true
}

// isPrefixOf reports whether p is a prefix of other (p.n <= len(other) and
// every tag of p matches other at that position).
func (p *TagPath) isPrefixOf(other []tag.Tag) bool {
	if p.n > len(other) {
		return false
	}
	for i := 0; i < p.n; i++ {
		if p.tags[i] != other[i] {
			return false
		}
	}
	return true
}

// TagPathSet holds a caller-registered collection of tag paths, consulted
// both as exact-match targets for attribute dispatch and as prefixes for
// the walker's descent decision. Grounded on the original C parser's
// tag_path_set (openslide-decode-dicom.c), reimplemented as a slice of
// path copies instead of a flat array with parallel length table — the Go
// append-based version doesn't need the original's fixed-512-tag backing
// array.
type TagPathSet struct {
	paths [][]tag.Tag
}

// Add registers a copy of path.
func (s *TagPathSet) Add(path []tag.Tag) {
	cp := append([]tag.Tag(nil), path...)
	s.paths = append(s.paths, cp)
}

// Find reports whether some registered path equals tp exactly.
func (s *TagPathSet) Find(tp *TagPath) bool {
	for _, p := range s.paths {
		if tp.equalsTags(p) {
			return true
		}
	}
	return false
}

// Match reports whether tp is a prefix of some registered path — i.e.
// tp names an ancestor (or exact match) of something the caller actually
// wants, so the walker must descend into it. This is the walker's
// descent-decision predicate (spec.md §4.3/§4.4).
//
// The original C source contains a revision where this check is replaced
// by an unconditional `return true`, disabling selective descent entirely
// (spec.md §9 calls this out as a bug). This implementation performs true
// prefix matching.
func (s *TagPathSet) Match(tp *TagPath) bool {
	for _, p := range s.paths {
		if tp.isPrefixOf(p) {
			return true
		}
	}
	return false
}
