package ast

import "ownc/internal/source"

type File struct {
	Span  source.Span
	Path  string
	Items []ItemID
}

type Files struct {
	Arena *Arena[File]
}

func NewFiles(capHint uint) *Files {
	return &Files{Arena: NewArena[File](capHint)}
}

func (f *Files) New(sp source.Span, path string) FileID {
	return FileID(f.Arena.Allocate(File{Span: sp, Path: path}))
}

func (f *Files) Get(id FileID) *File {
	return f.Arena.Get(uint32(id))
}
