// Package astio decodes the unit document produced by the parser
// collaborator into an ast.Builder. The document is JSON, or the same tree
// in MessagePack for .owb files. Every node is an object with exactly one
// kind key, spans are [start, end] byte offsets into the unit's source.
package astio

// Span is [start, end) in bytes.
type Span [2]uint32

type Document struct {
	Version int    `json:"version"`
	Path    string `json:"path"`
	// Source is optional; without it diagnostics show offsets only.
	Source string `json:"source,omitempty"`
	Items  []Item `json:"items"`
}

type Item struct {
	Fn     *Fn     `json:"fn,omitempty"`
	Struct *Struct `json:"struct,omitempty"`
	Enum   *Enum   `json:"enum,omitempty"`
	Trait  *Trait  `json:"trait,omitempty"`
	Impl   *Impl   `json:"impl,omitempty"`
}

type Generic struct {
	Name   string   `json:"name"`
	Bounds []string `json:"bounds,omitempty"`
	Span   Span     `json:"span"`
}

type Param struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
	Mut  bool   `json:"mut,omitempty"`
	// Hint: "", "owned", "ref" or "mut".
	Hint string `json:"hint,omitempty"`
	Span Span   `json:"span"`
}

type Fn struct {
	Name     string    `json:"name"`
	Generics []Generic `json:"generics,omitempty"`
	// Receiver: "", "self", "owned", "ref" or "mut_ref".
	Receiver     string  `json:"receiver,omitempty"`
	ReceiverMut  bool    `json:"receiver_mut,omitempty"`
	ReceiverSpan Span    `json:"receiver_span"`
	Params       []Param `json:"params,omitempty"`
	Returns      *Type   `json:"returns,omitempty"`
	Body         *Stmt   `json:"body,omitempty"`
	Span         Span    `json:"span"`
}

type Field struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
	Span Span   `json:"span"`
}

type Struct struct {
	Name     string    `json:"name"`
	Generics []Generic `json:"generics,omitempty"`
	Fields   []Field   `json:"fields,omitempty"`
	Derives  []string  `json:"derives,omitempty"`
	Span     Span      `json:"span"`
}

type Variant struct {
	Name    string  `json:"name"`
	Payload []*Type `json:"payload,omitempty"`
	Span    Span    `json:"span"`
}

type Enum struct {
	Name     string    `json:"name"`
	Generics []Generic `json:"generics,omitempty"`
	Variants []Variant `json:"variants"`
	Derives  []string  `json:"derives,omitempty"`
	Span     Span      `json:"span"`
}

type Trait struct {
	Name    string `json:"name"`
	Methods []Fn   `json:"methods,omitempty"`
	Span    Span   `json:"span"`
}

type Impl struct {
	Type     *Type     `json:"type"`
	Trait    string    `json:"trait,omitempty"`
	Generics []Generic `json:"generics,omitempty"`
	Methods  []Fn      `json:"methods,omitempty"`
	Span     Span      `json:"span"`
}

// Types -----------------------------------------------------------------------

type Type struct {
	Named *NamedType `json:"named,omitempty"`
	Ref   *RefType   `json:"ref,omitempty"`
	Tuple *TupleType `json:"tuple,omitempty"`
	Array *ArrayType `json:"array,omitempty"`
	Self  *struct{}  `json:"self,omitempty"`
	Span  Span       `json:"span"`
}

type NamedType struct {
	Name string  `json:"name"`
	Args []*Type `json:"args,omitempty"`
}

type RefType struct {
	Elem *Type `json:"elem"`
	Mut  bool  `json:"mut,omitempty"`
}

type TupleType struct {
	Elems []*Type `json:"elems,omitempty"`
}

type ArrayType struct {
	Elem *Type `json:"elem"`
	// Len is nil for slices.
	Len *int64 `json:"len,omitempty"`
}

// Statements ------------------------------------------------------------------

type Stmt struct {
	Block    *BlockStmt  `json:"block,omitempty"`
	Let      *LetStmt    `json:"let,omitempty"`
	Assign   *AssignStmt `json:"assign,omitempty"`
	Expr     *ExprStmt   `json:"expr,omitempty"`
	Return   *ReturnStmt `json:"return,omitempty"`
	If       *IfStmt     `json:"if,omitempty"`
	Match    *MatchStmt  `json:"match,omitempty"`
	For      *ForStmt    `json:"for,omitempty"`
	While    *WhileStmt  `json:"while,omitempty"`
	Loop     *LoopStmt   `json:"loop,omitempty"`
	Break    *struct{}   `json:"break,omitempty"`
	Continue *struct{}   `json:"continue,omitempty"`
	Span     Span        `json:"span"`
}

type BlockStmt struct {
	Stmts []*Stmt `json:"stmts"`
}

type LetStmt struct {
	Pattern *Pattern `json:"pattern"`
	Type    *Type    `json:"type,omitempty"`
	Value   *Expr    `json:"value,omitempty"`
}

type AssignStmt struct {
	// Op: "=", "+=", "-=" ...
	Op     string `json:"op,omitempty"`
	Target *Expr  `json:"target"`
	Value  *Expr  `json:"value"`
}

type ExprStmt struct {
	Expr *Expr `json:"expr"`
}

type ReturnStmt struct {
	Value *Expr `json:"value,omitempty"`
}

type IfStmt struct {
	Cond *Expr `json:"cond"`
	Then *Stmt `json:"then"`
	Else *Stmt `json:"else,omitempty"`
}

type Arm struct {
	Pattern *Pattern `json:"pattern"`
	Guard   *Expr    `json:"guard,omitempty"`
	Body    *Stmt    `json:"body"`
	Span    Span     `json:"span"`
}

type MatchStmt struct {
	Scrutinee *Expr `json:"scrutinee"`
	Arms      []Arm `json:"arms"`
}

type ForStmt struct {
	Pattern  *Pattern `json:"pattern"`
	Iterable *Expr    `json:"iterable"`
	Body     *Stmt    `json:"body"`
}

type WhileStmt struct {
	Cond *Expr `json:"cond"`
	Body *Stmt `json:"body"`
}

type LoopStmt struct {
	Body *Stmt `json:"body"`
}

// Expressions -----------------------------------------------------------------

type Expr struct {
	Ident   *IdentExpr   `json:"ident,omitempty"`
	Lit     *LitExpr     `json:"lit,omitempty"`
	Path    *PathExpr    `json:"path,omitempty"`
	Call    *CallExpr    `json:"call,omitempty"`
	Method  *MethodExpr  `json:"method,omitempty"`
	Field   *FieldExpr   `json:"field,omitempty"`
	Index   *IndexExpr   `json:"index,omitempty"`
	Binary  *BinaryExpr  `json:"binary,omitempty"`
	Unary   *UnaryExpr   `json:"unary,omitempty"`
	Struct  *StructExpr  `json:"struct,omitempty"`
	Tuple   *ListExpr    `json:"tuple,omitempty"`
	Array   *ListExpr    `json:"array,omitempty"`
	Closure *ClosureExpr `json:"closure,omitempty"`
	Block   *BlockStmt   `json:"block,omitempty"`
	Range   *RangeExpr   `json:"range,omitempty"`
	Cast    *CastExpr    `json:"cast,omitempty"`
	Try     *TryExpr     `json:"try,omitempty"`
	Span    Span         `json:"span"`
}

type IdentExpr struct {
	Name string `json:"name"`
}

type LitExpr struct {
	// Kind: int, float, string, bool, char or unit.
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

type PathExpr struct {
	Segments []string `json:"segments"`
}

type CallExpr struct {
	Callee *Expr   `json:"callee"`
	Args   []*Expr `json:"args,omitempty"`
}

type MethodExpr struct {
	Receiver *Expr   `json:"receiver"`
	Name     string  `json:"name"`
	Args     []*Expr `json:"args,omitempty"`
}

type FieldExpr struct {
	Object *Expr  `json:"object"`
	Name   string `json:"name"`
}

type IndexExpr struct {
	Object *Expr `json:"object"`
	Index  *Expr `json:"index"`
}

type BinaryExpr struct {
	Op    string `json:"op"`
	Left  *Expr  `json:"left"`
	Right *Expr  `json:"right"`
}

type UnaryExpr struct {
	// Op: "-", "!", "&", "&mut" or "*".
	Op      string `json:"op"`
	Operand *Expr  `json:"operand"`
}

type FieldInit struct {
	Name  string `json:"name"`
	Value *Expr  `json:"value"`
	Span  Span   `json:"span"`
}

type StructExpr struct {
	Name   string      `json:"name"`
	Fields []FieldInit `json:"fields,omitempty"`
}

type ListExpr struct {
	Elems []*Expr `json:"elems,omitempty"`
}

type ClosureParam struct {
	Name string `json:"name"`
	Type *Type  `json:"type,omitempty"`
	Mut  bool   `json:"mut,omitempty"`
	Span Span   `json:"span"`
}

type ClosureExpr struct {
	Params []ClosureParam `json:"params,omitempty"`
	Body   *Expr          `json:"body"`
}

type RangeExpr struct {
	Start     *Expr `json:"start,omitempty"`
	End       *Expr `json:"end,omitempty"`
	Inclusive bool  `json:"inclusive,omitempty"`
}

type CastExpr struct {
	Value *Expr `json:"value"`
	Type  *Type `json:"type"`
}

type TryExpr struct {
	Value *Expr `json:"value"`
}

// Patterns --------------------------------------------------------------------

type Pattern struct {
	Wildcard *struct{}       `json:"wildcard,omitempty"`
	Bind     *BindPattern    `json:"bind,omitempty"`
	Tuple    *TuplePattern   `json:"tuple,omitempty"`
	Variant  *VariantPattern `json:"variant,omitempty"`
	Lit      *Expr           `json:"lit,omitempty"`
	Span     Span            `json:"span"`
}

type BindPattern struct {
	Name string `json:"name"`
	Mut  bool   `json:"mut,omitempty"`
}

type TuplePattern struct {
	Elems []*Pattern `json:"elems,omitempty"`
}

type VariantPattern struct {
	Path  []string   `json:"path"`
	Elems []*Pattern `json:"elems,omitempty"`
}
