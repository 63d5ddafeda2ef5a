package astio

import (
	"fmt"

	"ownc/internal/ast"
	"ownc/internal/source"
)

var assignOps = map[string]ast.AssignOp{
	"":    ast.AssignPlain,
	"=":   ast.AssignPlain,
	"+=":  ast.AssignAdd,
	"-=":  ast.AssignSub,
	"*=":  ast.AssignMul,
	"/=":  ast.AssignDiv,
	"%=":  ast.AssignRem,
	"&=":  ast.AssignBitAnd,
	"|=":  ast.AssignBitOr,
	"^=":  ast.AssignBitXor,
	"<<=": ast.AssignShl,
	">>=": ast.AssignShr,
}

var binaryOps = map[string]ast.ExprBinaryOp{
	"+":  ast.BinAdd,
	"-":  ast.BinSub,
	"*":  ast.BinMul,
	"/":  ast.BinDiv,
	"%":  ast.BinRem,
	"==": ast.BinEq,
	"!=": ast.BinNe,
	"<":  ast.BinLt,
	"<=": ast.BinLe,
	">":  ast.BinGt,
	">=": ast.BinGe,
	"&&": ast.BinAnd,
	"||": ast.BinOr,
	"&":  ast.BinBitAnd,
	"|":  ast.BinBitOr,
	"^":  ast.BinBitXor,
	"<<": ast.BinShl,
	">>": ast.BinShr,
}

var unaryOps = map[string]ast.ExprUnaryOp{
	"-":    ast.UnNeg,
	"!":    ast.UnNot,
	"&":    ast.UnRef,
	"&mut": ast.UnRefMut,
	"*":    ast.UnDeref,
}

var litKinds = map[string]ast.ExprLitKind{
	"int":    ast.LitInt,
	"float":  ast.LitFloat,
	"string": ast.LitString,
	"bool":   ast.LitBool,
	"char":   ast.LitChar,
	"unit":   ast.LitUnit,
}

// Statements ------------------------------------------------------------------

func (d *decoder) stmt(s *Stmt) ast.StmtID {
	if s == nil {
		d.fail(ErrMalformed, "missing statement")
		return ast.NoStmtID
	}
	if !d.one("statement", s.Block != nil, s.Let != nil, s.Assign != nil, s.Expr != nil, s.Return != nil,
		s.If != nil, s.Match != nil, s.For != nil, s.While != nil, s.Loop != nil, s.Break != nil, s.Continue != nil) {
		return ast.NoStmtID
	}
	sp := d.span(s.Span)
	st := d.b.Stmts
	switch {
	case s.Block != nil:
		return d.block(sp, s.Block)
	case s.Let != nil:
		defer d.at("let")()
		return st.NewLet(sp, d.pattern(s.Let.Pattern), d.typ(s.Let.Type), d.optExpr(s.Let.Value))
	case s.Assign != nil:
		defer d.at("assign")()
		op, ok := assignOps[s.Assign.Op]
		if !ok {
			d.fail(ErrUnsupported, "assignment operator %q", s.Assign.Op)
		}
		return st.NewAssign(sp, op, d.expr(s.Assign.Target), d.expr(s.Assign.Value))
	case s.Expr != nil:
		return st.NewExpr(sp, d.expr(s.Expr.Expr))
	case s.Return != nil:
		return st.NewReturn(sp, d.optExpr(s.Return.Value))
	case s.If != nil:
		defer d.at("if")()
		els := ast.NoStmtID
		if s.If.Else != nil {
			els = d.stmt(s.If.Else)
		}
		return st.NewIf(sp, d.expr(s.If.Cond), d.body(s.If.Then), els)
	case s.Match != nil:
		defer d.at("match")()
		scrutinee := d.expr(s.Match.Scrutinee)
		arms := make([]ast.MatchArm, 0, len(s.Match.Arms))
		for i := range s.Match.Arms {
			a := &s.Match.Arms[i]
			restore := d.at(fmt.Sprintf("arms[%d]", i))
			arms = append(arms, ast.MatchArm{
				Pattern: d.pattern(a.Pattern),
				Guard:   d.optExpr(a.Guard),
				Body:    d.stmt(a.Body),
				Span:    d.span(a.Span),
			})
			restore()
		}
		return st.NewMatch(sp, scrutinee, arms)
	case s.For != nil:
		defer d.at("for")()
		return st.NewFor(sp, d.pattern(s.For.Pattern), d.expr(s.For.Iterable), d.body(s.For.Body))
	case s.While != nil:
		defer d.at("while")()
		return st.NewWhile(sp, d.expr(s.While.Cond), d.body(s.While.Body))
	case s.Loop != nil:
		defer d.at("loop")()
		return st.NewLoop(sp, d.body(s.Loop.Body))
	case s.Break != nil:
		return st.NewBreak(sp)
	default:
		return st.NewContinue(sp)
	}
}

func (d *decoder) block(sp source.Span, blk *BlockStmt) ast.StmtID {
	ids := make([]ast.StmtID, 0, len(blk.Stmts))
	for i, s := range blk.Stmts {
		restore := d.at(fmt.Sprintf("stmts[%d]", i))
		ids = append(ids, d.stmt(s))
		restore()
	}
	return d.b.Stmts.NewBlock(sp, ids)
}

// body decodes a statement that must be a block; a lone statement is wrapped.
func (d *decoder) body(s *Stmt) ast.StmtID {
	id := d.stmt(s)
	if !id.IsValid() || s.Block != nil {
		return id
	}
	return d.b.Stmts.NewBlock(d.span(s.Span), []ast.StmtID{id})
}

// Expressions -----------------------------------------------------------------

func (d *decoder) optExpr(e *Expr) ast.ExprID {
	if e == nil {
		return ast.NoExprID
	}
	return d.expr(e)
}

func (d *decoder) exprs(es []*Expr) []ast.ExprID {
	out := make([]ast.ExprID, 0, len(es))
	for _, e := range es {
		out = append(out, d.expr(e))
	}
	return out
}

func (d *decoder) expr(e *Expr) ast.ExprID {
	if e == nil {
		d.fail(ErrMalformed, "missing expression")
		return ast.NoExprID
	}
	if !d.one("expression", e.Ident != nil, e.Lit != nil, e.Path != nil, e.Call != nil, e.Method != nil,
		e.Field != nil, e.Index != nil, e.Binary != nil, e.Unary != nil, e.Struct != nil, e.Tuple != nil,
		e.Array != nil, e.Closure != nil, e.Block != nil, e.Range != nil, e.Cast != nil, e.Try != nil) {
		return ast.NoExprID
	}
	sp := d.span(e.Span)
	ex := d.b.Exprs
	switch {
	case e.Ident != nil:
		return ex.NewIdent(sp, d.name(e.Ident.Name))
	case e.Lit != nil:
		return d.literal(sp, e.Lit)
	case e.Path != nil:
		if len(e.Path.Segments) == 0 {
			d.fail(ErrMalformed, "empty path")
		}
		return ex.NewPath(sp, d.names(e.Path.Segments)...)
	case e.Call != nil:
		defer d.at("call")()
		return ex.NewCall(sp, d.expr(e.Call.Callee), d.exprs(e.Call.Args))
	case e.Method != nil:
		defer d.at("method " + e.Method.Name)()
		return ex.NewMethodCall(sp, d.expr(e.Method.Receiver), d.name(e.Method.Name), d.exprs(e.Method.Args))
	case e.Field != nil:
		return ex.NewField(sp, d.expr(e.Field.Object), d.name(e.Field.Name))
	case e.Index != nil:
		return ex.NewIndex(sp, d.expr(e.Index.Object), d.expr(e.Index.Index))
	case e.Binary != nil:
		op, ok := binaryOps[e.Binary.Op]
		if !ok {
			d.fail(ErrUnsupported, "binary operator %q", e.Binary.Op)
		}
		return ex.NewBinary(sp, op, d.expr(e.Binary.Left), d.expr(e.Binary.Right))
	case e.Unary != nil:
		op, ok := unaryOps[e.Unary.Op]
		if !ok {
			d.fail(ErrUnsupported, "unary operator %q", e.Unary.Op)
		}
		return ex.NewUnary(sp, op, d.expr(e.Unary.Operand))
	case e.Struct != nil:
		defer d.at("struct " + e.Struct.Name)()
		fields := make([]ast.FieldInit, 0, len(e.Struct.Fields))
		for _, f := range e.Struct.Fields {
			fields = append(fields, ast.FieldInit{Name: d.name(f.Name), Value: d.expr(f.Value), Span: d.span(f.Span)})
		}
		return ex.NewStruct(sp, d.name(e.Struct.Name), fields)
	case e.Tuple != nil:
		return ex.NewTuple(sp, d.exprs(e.Tuple.Elems))
	case e.Array != nil:
		return ex.NewArray(sp, d.exprs(e.Array.Elems))
	case e.Closure != nil:
		defer d.at("closure")()
		params := make([]ast.ClosureParam, 0, len(e.Closure.Params))
		for _, p := range e.Closure.Params {
			params = append(params, ast.ClosureParam{Name: d.name(p.Name), Type: d.typ(p.Type), Mutable: p.Mut, Span: d.span(p.Span)})
		}
		return ex.NewClosure(sp, params, d.expr(e.Closure.Body))
	case e.Block != nil:
		return ex.NewBlock(sp, d.block(sp, e.Block))
	case e.Range != nil:
		return ex.NewRange(sp, d.optExpr(e.Range.Start), d.optExpr(e.Range.End), e.Range.Inclusive)
	case e.Cast != nil:
		if e.Cast.Type == nil {
			d.fail(ErrMalformed, "cast without a type")
		}
		return ex.NewCast(sp, d.expr(e.Cast.Value), d.typ(e.Cast.Type))
	default:
		return ex.NewTry(sp, d.expr(e.Try.Value))
	}
}

func (d *decoder) literal(sp source.Span, lit *LitExpr) ast.ExprID {
	kind, ok := litKinds[lit.Kind]
	if !ok {
		d.fail(ErrUnsupported, "literal kind %q", lit.Kind)
	}
	value := source.NoStringID
	if kind != ast.LitUnit {
		value = d.b.Intern(lit.Value)
	}
	return d.b.Exprs.NewLiteral(sp, kind, value)
}

// Patterns --------------------------------------------------------------------

func (d *decoder) pattern(p *Pattern) ast.PatternID {
	if p == nil {
		d.fail(ErrMalformed, "missing pattern")
		return ast.NoPatternID
	}
	if !d.one("pattern", p.Wildcard != nil, p.Bind != nil, p.Tuple != nil, p.Variant != nil, p.Lit != nil) {
		return ast.NoPatternID
	}
	sp := d.span(p.Span)
	ps := d.b.Patterns
	switch {
	case p.Wildcard != nil:
		return ps.NewWildcard(sp)
	case p.Bind != nil:
		return ps.NewBinding(sp, d.name(p.Bind.Name), p.Bind.Mut)
	case p.Tuple != nil:
		return ps.NewTuple(sp, d.patterns(p.Tuple.Elems)...)
	case p.Variant != nil:
		if len(p.Variant.Path) == 0 {
			d.fail(ErrMalformed, "variant pattern without a path")
		}
		return ps.NewVariant(sp, d.names(p.Variant.Path), d.patterns(p.Variant.Elems)...)
	default:
		if p.Lit.Lit == nil {
			d.fail(ErrUnsupported, "pattern literal must be a literal expression")
			return ast.NoPatternID
		}
		return ps.NewLiteral(sp, d.expr(p.Lit))
	}
}

func (d *decoder) patterns(ps []*Pattern) []ast.PatternID {
	out := make([]ast.PatternID, 0, len(ps))
	for _, p := range ps {
		out = append(out, d.pattern(p))
	}
	return out
}
