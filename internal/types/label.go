package types

import (
	"fmt"
	"strings"
)

// Label renders a type the way diagnostics show it.
func (in *Interner) Label(id TypeID) string {
	var b strings.Builder
	in.writeLabel(&b, id, 0)
	return b.String()
}

func (in *Interner) writeLabel(b *strings.Builder, id TypeID, depth int) {
	if depth > 32 {
		b.WriteString("...")
		return
	}
	tt, ok := in.Lookup(id)
	if !ok {
		b.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindUnknown:
		b.WriteString("_")
	case KindUnit:
		b.WriteString("()")
	case KindBool, KindChar, KindStr:
		b.WriteString(tt.Kind.String())
	case KindInt, KindUint, KindFloat:
		writeNumeric(b, tt)
	case KindReference:
		if tt.Mutable {
			b.WriteString("&mut ")
		} else {
			b.WriteByte('&')
		}
		in.writeLabel(b, tt.Elem, depth+1)
	case KindArray:
		b.WriteByte('[')
		in.writeLabel(b, tt.Elem, depth+1)
		if tt.Count != ArrayDynamicLength {
			fmt.Fprintf(b, "; %d", tt.Count)
		}
		b.WriteByte(']')
	case KindTuple:
		info, _ := in.TupleInfo(id)
		b.WriteByte('(')
		for i, el := range info.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			in.writeLabel(b, el, depth+1)
		}
		if len(info.Elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case KindNamed:
		info, _ := in.NamedInfo(id)
		b.WriteString(info.Name)
		if len(info.Args) > 0 {
			b.WriteByte('<')
			for i, a := range info.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				in.writeLabel(b, a, depth+1)
			}
			b.WriteByte('>')
		}
	case KindParam:
		info, _ := in.ParamInfo(id)
		b.WriteString(info.Name)
	default:
		b.WriteString(tt.Kind.String())
	}
}

func writeNumeric(b *strings.Builder, tt Type) {
	if tt.Width == WidthAny {
		b.WriteString(tt.Kind.String())
		return
	}
	switch tt.Kind {
	case KindInt:
		fmt.Fprintf(b, "i%d", tt.Width)
	case KindUint:
		fmt.Fprintf(b, "u%d", tt.Width)
	default:
		fmt.Fprintf(b, "f%d", tt.Width)
	}
}
