package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ownc/internal/ast"
	"ownc/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a decoded file:
// 1) file.Span is non-empty and within file content bounds
// 2) every item span is non-empty and fully contained in file.Span
// 3) every function body span lies inside file.Span
// 4) file.Span covers the union of item spans (if any items exist)
func CheckSpanInvariants(b *ast.Builder, fileID ast.FileID, sf *source.File) error {
	if b == nil || sf == nil {
		return fmt.Errorf("nil builder or file")
	}
	f := b.Files.Get(fileID)
	if f == nil {
		return fmt.Errorf("file node not found")
	}

	// 1) file span sanity
	if f.Span.End <= f.Span.Start {
		return fmt.Errorf("file span is empty: %v", f.Span)
	}
	if f.Span.File != sf.ID {
		return fmt.Errorf("file span points to different file id: got=%d want=%d", f.Span.File, sf.ID)
	}
	if sf.Flags&source.FileNoContent == 0 {
		lenContent, err := safecast.Conv[uint32](len(sf.Content))
		if err != nil {
			return fmt.Errorf("len content overflow: %w", err)
		}
		if f.Span.End > lenContent {
			return fmt.Errorf("file span end beyond content: %d > %d", f.Span.End, lenContent)
		}
	}

	var union source.Span
	var haveItem bool
	for _, it := range f.Items {
		item := b.Items.Get(it)
		if item == nil {
			return fmt.Errorf("nil item for id=%d", it)
		}
		sp := item.Span
		if err := within(sp, f.Span, sf.ID, "item"); err != nil {
			return err
		}
		if fn, ok := b.Items.Fn(it); ok && fn.HasBody() {
			body := b.Stmts.Get(fn.Body)
			if body == nil {
				return fmt.Errorf("fn body %d not found", fn.Body)
			}
			if err := within(body.Span, f.Span, sf.ID, "fn body"); err != nil {
				return err
			}
		}
		if !haveItem {
			union = sp
			haveItem = true
		} else {
			union = union.Cover(sp)
		}
	}

	if haveItem && !f.Span.Contains(union) {
		return fmt.Errorf("file span %v does not cover union of items %v", f.Span, union)
	}
	return nil
}

func within(sp, outer source.Span, file source.FileID, what string) error {
	if sp.End <= sp.Start {
		return fmt.Errorf("empty %s span: %v", what, sp)
	}
	if sp.File != file {
		return fmt.Errorf("%s span file mismatch: got=%d want=%d", what, sp.File, file)
	}
	if sp.Start < outer.Start || sp.End > outer.End {
		return fmt.Errorf("%s span %v is outside file span %v", what, sp, outer)
	}
	return nil
}
