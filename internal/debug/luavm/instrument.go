package luavm

import (
	"sort"
	"strconv"

	"github.com/yuin/gopher-lua/ast"
)

// lineHookName is the global the instrumented code calls before each
// statement.
const lineHookName = "__stepwise_line"

// instrumenter inserts line hook calls into a chunk and records the lines
// it instrumented.
type instrumenter struct {
	sourceID int
	lines    map[int]bool
}

func newInstrumenter(sourceID int) *instrumenter {
	return &instrumenter{sourceID: sourceID, lines: make(map[int]bool)}
}

// executable returns the instrumented lines in ascending order.
func (in *instrumenter) executable() []int {
	out := make([]int, 0, len(in.lines))
	for l := range in.lines {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

func (in *instrumenter) block(stmts []ast.Stmt) []ast.Stmt {
	if len(stmts) == 0 {
		return stmts
	}
	out := make([]ast.Stmt, 0, 2*len(stmts))
	for _, st := range stmts {
		in.stmt(st)
		out = append(out, in.hook(st.Line()), st)
	}
	return out
}

func (in *instrumenter) hook(line int) ast.Stmt {
	in.lines[line] = true

	fn := &ast.IdentExpr{Value: lineHookName}
	id := &ast.NumberExpr{Value: strconv.Itoa(in.sourceID)}
	ln := &ast.NumberExpr{Value: strconv.Itoa(line)}
	call := &ast.FuncCallExpr{Func: fn, Args: []ast.Expr{id, ln}}
	stmt := &ast.FuncCallStmt{Expr: call}
	for _, n := range []ast.PositionHolder{fn, id, ln, call, stmt} {
		n.SetLine(line)
		n.SetLastLine(line)
	}
	return stmt
}

func (in *instrumenter) stmt(st ast.Stmt) {
	switch s := st.(type) {
	case *ast.AssignStmt:
		in.exprs(s.Lhs)
		in.exprs(s.Rhs)
	case *ast.LocalAssignStmt:
		in.exprs(s.Exprs)
	case *ast.FuncCallStmt:
		in.expr(s.Expr)
	case *ast.DoBlockStmt:
		s.Stmts = in.block(s.Stmts)
	case *ast.WhileStmt:
		in.expr(s.Condition)
		s.Stmts = in.block(s.Stmts)
	case *ast.RepeatStmt:
		in.expr(s.Condition)
		s.Stmts = in.block(s.Stmts)
	case *ast.IfStmt:
		in.expr(s.Condition)
		s.Then = in.block(s.Then)
		s.Else = in.block(s.Else)
	case *ast.NumberForStmt:
		in.expr(s.Init)
		in.expr(s.Limit)
		in.expr(s.Step)
		s.Stmts = in.block(s.Stmts)
	case *ast.GenericForStmt:
		in.exprs(s.Exprs)
		s.Stmts = in.block(s.Stmts)
	case *ast.FuncDefStmt:
		in.function(s.Func)
	case *ast.ReturnStmt:
		in.exprs(s.Exprs)
	}
}

func (in *instrumenter) function(f *ast.FunctionExpr) {
	if f != nil {
		f.Stmts = in.block(f.Stmts)
	}
}

func (in *instrumenter) exprs(es []ast.Expr) {
	for _, e := range es {
		in.expr(e)
	}
}

func (in *instrumenter) expr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.FunctionExpr:
		in.function(x)
	case *ast.FuncCallExpr:
		in.expr(x.Func)
		in.expr(x.Receiver)
		in.exprs(x.Args)
	case *ast.AttrGetExpr:
		in.expr(x.Object)
		in.expr(x.Key)
	case *ast.TableExpr:
		for _, f := range x.Fields {
			in.expr(f.Key)
			in.expr(f.Value)
		}
	case *ast.LogicalOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.RelationalOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.StringConcatOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.ArithmeticOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.UnaryMinusOpExpr:
		in.expr(x.Expr)
	case *ast.UnaryNotOpExpr:
		in.expr(x.Expr)
	case *ast.UnaryLenOpExpr:
		in.expr(x.Expr)
	}
}
