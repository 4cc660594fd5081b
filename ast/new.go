package ast

import "github.com/galang-lang/gal/token"

// Constructor helpers so the parser doesn't need to spell out the nested
// embedded-struct literals for every node variant.

func b(loc token.Location) base           { return base{Location: loc} }
func eb(loc token.Location) exprBase      { return exprBase{b(loc)} }
func sb(loc token.Location) statBase      { return statBase{b(loc)} }
func tb(loc token.Location) typeBase      { return typeBase{b(loc)} }

func NewConstantNull(loc token.Location) *ConstantNull { return &ConstantNull{eb(loc)} }

func NewConstantBool(loc token.Location, v bool) *ConstantBool {
	return &ConstantBool{eb(loc), v}
}

func NewConstantNumber(loc token.Location, v float64) *ConstantNumber {
	return &ConstantNumber{eb(loc), v}
}

func NewConstantString(loc token.Location, v string) *ConstantString {
	return &ConstantString{eb(loc), v}
}

func NewVarargs(loc token.Location) *Varargs { return &Varargs{eb(loc)} }

func NewLocalRef(loc token.Location, name string) *LocalRef {
	return &LocalRef{exprBase: eb(loc), Name: name, Slot: -1}
}

func NewGlobalRef(loc token.Location, name string) *GlobalRef {
	return &GlobalRef{eb(loc), name}
}

func NewCall(loc token.Location, fn Expr, args []Expr, method string) *Call {
	return &Call{eb(loc), fn, args, method}
}

func NewIndexName(loc token.Location, obj Expr, name string) *IndexName {
	return &IndexName{eb(loc), obj, name}
}

func NewIndexExpr(loc token.Location, obj, idx Expr) *IndexExpr {
	return &IndexExpr{eb(loc), obj, idx}
}

func NewFunctionLiteral(loc token.Location, params []Binding, variadic bool, body *Block) *FunctionLiteral {
	return &FunctionLiteral{exprBase: eb(loc), Params: params, Variadic: variadic, Body: body}
}

func NewTableConstructor(loc token.Location, items []TableItem) *TableConstructor {
	return &TableConstructor{eb(loc), items}
}

func NewUnary(loc token.Location, op UnaryOp, operand Expr) *Unary {
	return &Unary{eb(loc), op, operand}
}

func NewBinary(loc token.Location, op BinaryOp, l, r Expr) *Binary {
	return &Binary{eb(loc), op, l, r}
}

func NewTypeAssertion(loc token.Location, operand Expr, t Type) *TypeAssertion {
	return &TypeAssertion{eb(loc), operand, t}
}

func NewIfExpr(loc token.Location, cond, then, els Expr) *IfExpr {
	return &IfExpr{eb(loc), cond, then, els}
}

func NewCompoundAssignExpr(loc token.Location, target Expr, op BinaryOp, value Expr) *CompoundAssignExpr {
	return &CompoundAssignExpr{eb(loc), target, op, value}
}

func NewBlock(loc token.Location, stats []Stat) *Block {
	return &Block{statBase: sb(loc), Stats: stats}
}

func NewIfStat(loc token.Location, cond Expr, then *Block, elseIfs []ElseIf, els *Block) *IfStat {
	return &IfStat{sb(loc), cond, then, elseIfs, els}
}

func NewWhileStat(loc token.Location, cond Expr, body *Block) *WhileStat {
	return &WhileStat{sb(loc), cond, body}
}

func NewRepeatStat(loc token.Location, body *Block, cond Expr) *RepeatStat {
	return &RepeatStat{sb(loc), body, cond}
}

func NewNumericForStat(loc token.Location, v Binding, start, limit, step Expr, body *Block) *NumericForStat {
	return &NumericForStat{sb(loc), v, start, limit, step, body}
}

func NewGenericForStat(loc token.Location, vars []Binding, exprs []Expr, body *Block) *GenericForStat {
	return &GenericForStat{sb(loc), vars, exprs, body}
}

func NewFunctionStat(loc token.Location, chain []string, isMethod bool, fn *FunctionLiteral) *FunctionStat {
	return &FunctionStat{sb(loc), chain, isMethod, fn}
}

func NewLocalStat(loc token.Location, bindings []Binding, values []Expr) *LocalStat {
	return &LocalStat{statBase: sb(loc), Bindings: bindings, Values: values}
}

func NewLocalFunctionStat(loc token.Location, name string, fn *FunctionLiteral) *LocalStat {
	return &LocalStat{statBase: sb(loc), Bindings: []Binding{{Name: name}}, IsLocalFunction: true, Func: fn}
}

func NewAssignStat(loc token.Location, targets, values []Expr) *AssignStat {
	return &AssignStat{sb(loc), targets, values}
}

func NewCompoundAssignStat(loc token.Location, target Expr, op BinaryOp, value Expr) *CompoundAssignStat {
	return &CompoundAssignStat{sb(loc), target, op, value}
}

func NewDeclareStat(loc token.Location, d DeclareStat) *DeclareStat {
	d.statBase = sb(loc)
	return &d
}

func NewTypeAliasStat(loc token.Location, export bool, name string, generics []string, t Type) *TypeAliasStat {
	return &TypeAliasStat{sb(loc), export, name, generics, t}
}

func NewReturnStat(loc token.Location, values []Expr) *ReturnStat {
	return &ReturnStat{sb(loc), values}
}

func NewBreakStat(loc token.Location) *BreakStat       { return &BreakStat{sb(loc)} }
func NewContinueStat(loc token.Location) *ContinueStat { return &ContinueStat{sb(loc)} }

func NewExprStat(loc token.Location, call Expr) *ExprStat {
	return &ExprStat{statBase: sb(loc), Call: call}
}

func NewErrorStat(loc token.Location, msg string) *ErrorStat {
	return &ErrorStat{sb(loc), msg}
}

func NewNamedType(loc token.Location, name string, generics []Type) *NamedType {
	return &NamedType{tb(loc), name, generics}
}

func NewTableType(loc token.Location, props []TableTypeProp, indexer Type) *TableType {
	return &TableType{tb(loc), props, indexer}
}

func NewFunctionType(loc token.Location, generics []string, params []Type, variadic Type, ret []Type) *FunctionType {
	return &FunctionType{tb(loc), generics, params, variadic, ret}
}

func NewUnionType(loc token.Location, options []Type) *UnionType {
	return &UnionType{tb(loc), options}
}

func NewIntersectionType(loc token.Location, options []Type) *IntersectionType {
	return &IntersectionType{tb(loc), options}
}
