package dicom

import (
	"fmt"
	"os"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
)

// Parser is the public entry point: open a file, register the tag paths
// a caller cares about, attach a handler, then Parse. Modeled on the
// teacher's NewReader/Parse constructor pair, reshaped so the caller
// drives dispatch through a handler instead of receiving a built-up
// in-memory data set.
type Parser struct {
	file    *os.File
	paths   TagPathSet
	handler Handler
	closed  bool
}

// Open opens the file at path for parsing. The caller must call Close
// when done.
func Open(path string) (*Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newParseError(IO, nil, "opening %s: %w", path, err)
	}
	return &Parser{file: f}, nil
}

// RegisterPath registers a tag path of interest. Exact matches are
// dispatched to the handler; any registered path also makes every
// defined-length sequence that is its ancestor eligible for descent
// (spec.md §4.3/§4.4).
func (p *Parser) RegisterPath(path ...tag.Tag) error {
	if p.closed {
		return newParseError(Closed, nil, "RegisterPath called after Close")
	}
	if len(path) == 0 {
		return fmt.Errorf("tag path must name at least one tag")
	}
	p.paths.Add(path)
	return nil
}

// SetHandler attaches the callback invoked for every element whose tag
// path exactly matches a registered path (for encapsulated Pixel Data, for
// every fragment after the Basic Offset Table).
func (p *Parser) SetHandler(h Handler) {
	p.handler = h
}

// Parse reads the preamble, file meta group, and main data set, invoking
// the handler for every matching element. It reads through to EOF rather
// than stopping at the first Pixel Data tag (spec.md §9).
func (p *Parser) Parse() error {
	if p.closed {
		return newParseError(Closed, nil, "Parse called after Close")
	}
	if p.handler == nil {
		return fmt.Errorf("no handler set")
	}
	if err := readPreambleAndMeta(p.file); err != nil {
		return err
	}
	w := newWalker(&p.paths, p.handler)
	var tp TagPath
	return w.walkDataset(p.file, &tp)
}

// Close releases the underlying file. Subsequent calls to RegisterPath
// or Parse return a Closed error.
func (p *Parser) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.file.Close()
}
