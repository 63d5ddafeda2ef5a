package diagfmt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"ownc/internal/diag"
	"ownc/internal/source"
)

// fixEditPreview: строки, которых касается правка, до и после неё.
type fixEditPreview struct {
	before []string
	after  []string
}

var errNoPreview = errors.New("no source for preview")

func buildFixEditPreview(fs *source.FileSet, edit diag.FixEdit) (fixEditPreview, error) {
	var f *source.File
	if fs != nil {
		f = fs.Get(edit.Span.File)
	}
	if f == nil || f.Flags&source.FileNoContent != 0 {
		return fixEditPreview{}, errNoPreview
	}
	start, end := int(edit.Span.Start), int(edit.Span.End)
	if start > end || end > len(f.Content) {
		return fixEditPreview{}, fmt.Errorf("edit %d..%d outside %s", start, end, f.Path)
	}

	from, to := lineBlock(f.Content, start, end)
	block := f.Content[from:to]
	var edited strings.Builder
	edited.Write(block[:start-from])
	edited.WriteString(edit.NewText)
	edited.Write(block[end-from:])

	return fixEditPreview{
		before: previewLines(string(block)),
		after:  previewLines(edited.String()),
	}, nil
}

// lineBlock расширяет [start, end) до целых строк без завершающего \n.
func lineBlock(content []byte, start, end int) (int, int) {
	from := bytes.LastIndexByte(content[:start], '\n') + 1
	to := len(content)
	if i := bytes.IndexByte(content[end:], '\n'); i >= 0 {
		to = end + i
	}
	return from, to
}

func previewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
