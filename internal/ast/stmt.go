package ast

import "ownc/internal/source"

type StmtKind uint8

const (
	StmtBlock StmtKind = iota
	StmtLet
	StmtAssign
	StmtExpr
	StmtReturn
	StmtIf
	StmtMatch
	StmtFor
	StmtWhile
	StmtLoop
	StmtBreak
	StmtContinue
)

func (k StmtKind) String() string {
	switch k {
	case StmtBlock:
		return "block"
	case StmtLet:
		return "let"
	case StmtAssign:
		return "assign"
	case StmtExpr:
		return "expr"
	case StmtReturn:
		return "return"
	case StmtIf:
		return "if"
	case StmtMatch:
		return "match"
	case StmtFor:
		return "for"
	case StmtWhile:
		return "while"
	case StmtLoop:
		return "loop"
	case StmtBreak:
		return "break"
	case StmtContinue:
		return "continue"
	default:
		return "stmt?"
	}
}

type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Payload PayloadID
}

type AssignOp uint8

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignRem
	AssignBitAnd
	AssignBitOr
	AssignBitXor
	AssignShl
	AssignShr
)

// IsCompound: `+=` and friends.
func (op AssignOp) IsCompound() bool { return op != AssignPlain }

type BlockStmt struct {
	Stmts []StmtID
}

type LetStmt struct {
	Pattern PatternID
	Type    TypeID // NoTypeID when not written
	Value   ExprID // NoExprID for `let x;`
}

type AssignStmt struct {
	Op     AssignOp
	Target ExprID
	Value  ExprID
}

type ExprStmt struct {
	Expr ExprID
}

type ReturnStmt struct {
	Value ExprID // NoExprID for bare `return`
}

type IfStmt struct {
	Cond ExprID
	Then StmtID
	Else StmtID // NoStmtID, a block or a nested if
}

type MatchArm struct {
	Pattern PatternID
	Guard   ExprID
	Body    StmtID
	Span    source.Span
}

type MatchStmt struct {
	Scrutinee ExprID
	Arms      []MatchArm
}

type ForStmt struct {
	Pattern  PatternID
	Iterable ExprID
	Body     StmtID
}

type WhileStmt struct {
	Cond ExprID
	Body StmtID
}

type LoopStmt struct {
	Body StmtID
}

type Stmts struct {
	Arena   *Arena[Stmt]
	Blocks  *Arena[BlockStmt]
	Lets    *Arena[LetStmt]
	Assigns *Arena[AssignStmt]
	Exprs   *Arena[ExprStmt]
	Returns *Arena[ReturnStmt]
	Ifs     *Arena[IfStmt]
	Matches *Arena[MatchStmt]
	Fors    *Arena[ForStmt]
	Whiles  *Arena[WhileStmt]
	Loops   *Arena[LoopStmt]
}

func NewStmts(capHint uint) *Stmts {
	if capHint == 0 {
		capHint = 1 << 8
	}
	small := capHint/8 + 1
	return &Stmts{
		Arena:   NewArena[Stmt](capHint),
		Blocks:  NewArena[BlockStmt](capHint / 2),
		Lets:    NewArena[LetStmt](capHint / 2),
		Assigns: NewArena[AssignStmt](small),
		Exprs:   NewArena[ExprStmt](capHint / 2),
		Returns: NewArena[ReturnStmt](small),
		Ifs:     NewArena[IfStmt](small),
		Matches: NewArena[MatchStmt](small),
		Fors:    NewArena[ForStmt](small),
		Whiles:  NewArena[WhileStmt](small),
		Loops:   NewArena[LoopStmt](small),
	}
}

func (s *Stmts) new(kind StmtKind, span source.Span, payload PayloadID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{
		Kind:    kind,
		Span:    span,
		Payload: payload,
	}))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

func (s *Stmts) payload(id StmtID, kind StmtKind) (uint32, bool) {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != kind {
		return 0, false
	}
	return uint32(stmt.Payload), true
}

func (s *Stmts) NewBlock(span source.Span, stmts []StmtID) StmtID {
	payload := s.Blocks.Allocate(BlockStmt{Stmts: append([]StmtID(nil), stmts...)})
	return s.new(StmtBlock, span, PayloadID(payload))
}

func (s *Stmts) Block(id StmtID) (*BlockStmt, bool) {
	p, ok := s.payload(id, StmtBlock)
	if !ok {
		return nil, false
	}
	return s.Blocks.Get(p), true
}

func (s *Stmts) NewLet(span source.Span, pattern PatternID, typ TypeID, value ExprID) StmtID {
	payload := s.Lets.Allocate(LetStmt{Pattern: pattern, Type: typ, Value: value})
	return s.new(StmtLet, span, PayloadID(payload))
}

func (s *Stmts) Let(id StmtID) (*LetStmt, bool) {
	p, ok := s.payload(id, StmtLet)
	if !ok {
		return nil, false
	}
	return s.Lets.Get(p), true
}

func (s *Stmts) NewAssign(span source.Span, op AssignOp, target, value ExprID) StmtID {
	payload := s.Assigns.Allocate(AssignStmt{Op: op, Target: target, Value: value})
	return s.new(StmtAssign, span, PayloadID(payload))
}

func (s *Stmts) Assign(id StmtID) (*AssignStmt, bool) {
	p, ok := s.payload(id, StmtAssign)
	if !ok {
		return nil, false
	}
	return s.Assigns.Get(p), true
}

func (s *Stmts) NewExpr(span source.Span, expr ExprID) StmtID {
	payload := s.Exprs.Allocate(ExprStmt{Expr: expr})
	return s.new(StmtExpr, span, PayloadID(payload))
}

func (s *Stmts) Expr(id StmtID) (*ExprStmt, bool) {
	p, ok := s.payload(id, StmtExpr)
	if !ok {
		return nil, false
	}
	return s.Exprs.Get(p), true
}

func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	payload := s.Returns.Allocate(ReturnStmt{Value: value})
	return s.new(StmtReturn, span, PayloadID(payload))
}

func (s *Stmts) Return(id StmtID) (*ReturnStmt, bool) {
	p, ok := s.payload(id, StmtReturn)
	if !ok {
		return nil, false
	}
	return s.Returns.Get(p), true
}

func (s *Stmts) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	payload := s.Ifs.Allocate(IfStmt{Cond: cond, Then: then, Else: els})
	return s.new(StmtIf, span, PayloadID(payload))
}

func (s *Stmts) If(id StmtID) (*IfStmt, bool) {
	p, ok := s.payload(id, StmtIf)
	if !ok {
		return nil, false
	}
	return s.Ifs.Get(p), true
}

func (s *Stmts) NewMatch(span source.Span, scrutinee ExprID, arms []MatchArm) StmtID {
	payload := s.Matches.Allocate(MatchStmt{Scrutinee: scrutinee, Arms: append([]MatchArm(nil), arms...)})
	return s.new(StmtMatch, span, PayloadID(payload))
}

func (s *Stmts) Match(id StmtID) (*MatchStmt, bool) {
	p, ok := s.payload(id, StmtMatch)
	if !ok {
		return nil, false
	}
	return s.Matches.Get(p), true
}

func (s *Stmts) NewFor(span source.Span, pattern PatternID, iterable ExprID, body StmtID) StmtID {
	payload := s.Fors.Allocate(ForStmt{Pattern: pattern, Iterable: iterable, Body: body})
	return s.new(StmtFor, span, PayloadID(payload))
}

func (s *Stmts) For(id StmtID) (*ForStmt, bool) {
	p, ok := s.payload(id, StmtFor)
	if !ok {
		return nil, false
	}
	return s.Fors.Get(p), true
}

func (s *Stmts) NewWhile(span source.Span, cond ExprID, body StmtID) StmtID {
	payload := s.Whiles.Allocate(WhileStmt{Cond: cond, Body: body})
	return s.new(StmtWhile, span, PayloadID(payload))
}

func (s *Stmts) While(id StmtID) (*WhileStmt, bool) {
	p, ok := s.payload(id, StmtWhile)
	if !ok {
		return nil, false
	}
	return s.Whiles.Get(p), true
}

func (s *Stmts) NewLoop(span source.Span, body StmtID) StmtID {
	payload := s.Loops.Allocate(LoopStmt{Body: body})
	return s.new(StmtLoop, span, PayloadID(payload))
}

func (s *Stmts) Loop(id StmtID) (*LoopStmt, bool) {
	p, ok := s.payload(id, StmtLoop)
	if !ok {
		return nil, false
	}
	return s.Loops.Get(p), true
}

func (s *Stmts) NewBreak(span source.Span) StmtID {
	return s.new(StmtBreak, span, NoPayloadID)
}

func (s *Stmts) NewContinue(span source.Span) StmtID {
	return s.new(StmtContinue, span, NoPayloadID)
}
