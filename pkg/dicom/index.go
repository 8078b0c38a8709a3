package dicom

import (
	"strings"

	"github.com/jpfielding/dicomwsi/pkg/dicom/tag"
	"github.com/jpfielding/dicomwsi/pkg/dicom/vr"
)

// ReadIndex parses a DICOMDIR file and returns the referenced file IDs in
// encounter order, each translated from DICOM's backslash-separated path
// components to a forward-slash relative path. Grounded on
// _openslide_dicom_readindex and handle_attribute in
// openslide-decode-dicom.c.
func ReadIndex(path string) ([]string, error) {
	p, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	if err := p.RegisterPath(tag.DirectoryRecordSequence, tag.ReferencedFileID); err != nil {
		return nil, err
	}

	var files []string
	p.SetHandler(func(_ []tag.Tag, _ vr.VR, src *Source) error {
		buf := make([]byte, src.Size())
		if _, err := src.Read(buf); err != nil {
			return err
		}
		files = append(files, decodeFileID(buf))
		return nil
	})

	if err := p.Parse(); err != nil {
		return nil, err
	}
	return files, nil
}

// decodeFileID translates a Referenced File ID value — backslash-joined
// path components, each CS-padded with trailing spaces — into a relative
// path using forward slashes.
func decodeFileID(raw []byte) string {
	components := strings.Split(string(raw), "\\")
	for i, c := range components {
		components[i] = strings.TrimRight(c, " ")
	}
	return strings.Join(components, "/")
}
