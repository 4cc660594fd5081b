// Package ast defines the GAL abstract syntax tree as a tagged sum: one Kind
// enum value and one Go struct per node variant (spec §4.7, §9 design note
// "Polymorphism"). RTTI-by-index from the original C++ source becomes the
// Kind discriminator; the Visitor dispatches on it instead of on a class
// hierarchy.
package ast

import "github.com/galang-lang/gal/token"

// Kind is the RTTI-by-index discriminator for every node variant.
type Kind uint8

const (
	// Expressions
	KindConstantNull Kind = iota
	KindConstantBool
	KindConstantNumber
	KindConstantString
	KindVarargs
	KindLocalRef
	KindGlobalRef
	KindCall
	KindIndexName
	KindIndexExpr
	KindFunctionLiteral
	KindTableConstructor
	KindUnary
	KindBinary
	KindTypeAssertion
	KindIfExpr
	KindCompoundAssignExpr

	// Statements
	KindBlock
	KindIfStat
	KindWhileStat
	KindRepeatStat
	KindNumericForStat
	KindGenericForStat
	KindFunctionStat
	KindLocalStat
	KindAssignStat
	KindCompoundAssignStat
	KindDeclareStat
	KindTypeAliasStat
	KindReturnStat
	KindBreakStat
	KindContinueStat
	KindExprStat
	KindErrorStat

	// Types
	KindNamedType
	KindTableType
	KindFunctionType
	KindUnionType
	KindIntersectionType
)

// Node is implemented by every AST node variant. RTTIKind lets a visitor
// dispatch without a type switch when building dense tables (e.g. a
// per-kind scratch-stack pool, spec §4.6).
type Node interface {
	RTTIKind() Kind
	Loc() token.Location
}

type base struct {
	Location token.Location
}

func (b base) Loc() token.Location { return b.Location }

// ---- Expressions ----

type Expr interface {
	Node
	exprNode()
}

type exprBase struct{ base }

func (exprBase) exprNode() {}

type ConstantNull struct{ exprBase }

func (*ConstantNull) RTTIKind() Kind { return KindConstantNull }

type ConstantBool struct {
	exprBase
	Value bool
}

func (*ConstantBool) RTTIKind() Kind { return KindConstantBool }

type ConstantNumber struct {
	exprBase
	Value float64
}

func (*ConstantNumber) RTTIKind() Kind { return KindConstantNumber }

type ConstantString struct {
	exprBase
	Value string
}

func (*ConstantString) RTTIKind() Kind { return KindConstantString }

type Varargs struct{ exprBase }

func (*Varargs) RTTIKind() Kind { return KindVarargs }

type LocalRef struct {
	exprBase
	Name string
	// Slot is not filled in by the parser or the compiler; the compiler
	// resolves a LocalRef by Name through its own scope tables.
	Slot int
}

func (*LocalRef) RTTIKind() Kind { return KindLocalRef }

type GlobalRef struct {
	exprBase
	Name string
}

func (*GlobalRef) RTTIKind() Kind { return KindGlobalRef }

type Call struct {
	exprBase
	Function Expr
	Args     []Expr
	// Method, if non-empty, makes this a method call obj:Method(args).
	Method string
}

func (*Call) RTTIKind() Kind { return KindCall }

type IndexName struct {
	exprBase
	Object Expr
	Name   string
}

func (*IndexName) RTTIKind() Kind { return KindIndexName }

type IndexExpr struct {
	exprBase
	Object Expr
	Index  Expr
}

func (*IndexExpr) RTTIKind() Kind { return KindIndexExpr }

type FunctionLiteral struct {
	exprBase
	Params    []Binding
	Variadic  bool
	Body      *Block
	SelfParam bool // implicit "self" for obj:method(...) declarations
	DebugName string
}

func (*FunctionLiteral) RTTIKind() Kind { return KindFunctionLiteral }

// TableItemKind distinguishes the three constructor item shapes (spec §4.7).
type TableItemKind uint8

const (
	TableItemList TableItemKind = iota
	TableItemRecord
	TableItemGeneral
)

type TableItem struct {
	Kind  TableItemKind
	Key   Expr // set for Record (string constant) and General
	Value Expr
}

type TableConstructor struct {
	exprBase
	Items []TableItem
}

func (*TableConstructor) RTTIKind() Kind { return KindTableConstructor }

type UnaryOp uint8

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryLen
)

type Unary struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

func (*Unary) RTTIKind() Kind { return KindUnary }

type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinPow
	BinConcat
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
)

type Binary struct {
	exprBase
	Op          BinaryOp
	Left, Right Expr
}

func (*Binary) RTTIKind() Kind { return KindBinary }

type TypeAssertion struct {
	exprBase
	Operand Expr
	Type    Type
}

func (*TypeAssertion) RTTIKind() Kind { return KindTypeAssertion }

type IfExpr struct {
	exprBase
	Cond, Then, Else Expr
}

func (*IfExpr) RTTIKind() Kind { return KindIfExpr }

type CompoundAssignExpr struct {
	exprBase
	Target Expr
	Op     BinaryOp
	Value  Expr
}

func (*CompoundAssignExpr) RTTIKind() Kind { return KindCompoundAssignExpr }

// ---- Statements ----

type Stat interface {
	Node
	statNode()
}

type statBase struct{ base }

func (statBase) statNode() {}

type Block struct {
	statBase
	Stats []Stat
	// HasScope is false when the parser's block() finds no locals declared
	// directly in the block, letting the compiler skip a scope-close.
	HasScope bool
}

func (*Block) RTTIKind() Kind { return KindBlock }

type ElseIf struct {
	Cond Expr
	Body *Block
}

type IfStat struct {
	statBase
	Cond    Expr
	Then    *Block
	ElseIfs []ElseIf
	Else    *Block
}

func (*IfStat) RTTIKind() Kind { return KindIfStat }

type WhileStat struct {
	statBase
	Cond Expr
	Body *Block
}

func (*WhileStat) RTTIKind() Kind { return KindWhileStat }

type RepeatStat struct {
	statBase
	Body *Block
	Cond Expr
}

func (*RepeatStat) RTTIKind() Kind { return KindRepeatStat }

type NumericForStat struct {
	statBase
	Var              Binding
	Start, Limit, Step Expr // Step may be nil (defaults to 1)
	Body             *Block
}

func (*NumericForStat) RTTIKind() Kind { return KindNumericForStat }

type GenericForStat struct {
	statBase
	Vars  []Binding
	Exprs []Expr
	Body  *Block
}

func (*GenericForStat) RTTIKind() Kind { return KindGenericForStat }

type FunctionStat struct {
	statBase
	NameChain []string // e.g. {"a", "b", "c"} for function a.b.c()
	IsMethod  bool     // function a:b() form
	Func      *FunctionLiteral
}

func (*FunctionStat) RTTIKind() Kind { return KindFunctionStat }

type Binding struct {
	Name string
	Type Type // nil if unannotated
}

type LocalStat struct {
	statBase
	Bindings []Binding
	Values   []Expr
	// IsLocalFunction marks `local function f() ... end` sugar, which binds
	// the name before compiling the body so recursion works.
	IsLocalFunction bool
	Func            *FunctionLiteral
}

func (*LocalStat) RTTIKind() Kind { return KindLocalStat }

type AssignStat struct {
	statBase
	Targets []Expr
	Values  []Expr
}

func (*AssignStat) RTTIKind() Kind { return KindAssignStat }

type CompoundAssignStat struct {
	statBase
	Target Expr
	Op     BinaryOp
	Value  Expr
}

func (*CompoundAssignStat) RTTIKind() Kind { return KindCompoundAssignStat }

type DeclareKind uint8

const (
	DeclareFunction DeclareKind = iota
	DeclareClass
	DeclareVariable
)

type DeclareProperty struct {
	Name string
	Type Type
}

type DeclareStat struct {
	statBase
	What       DeclareKind
	Name       string
	Superclass string // DeclareClass only
	Params     []Binding
	Return     Type
	Properties []DeclareProperty
}

func (*DeclareStat) RTTIKind() Kind { return KindDeclareStat }

type TypeAliasStat struct {
	statBase
	Export   bool
	Name     string
	Generics []string
	Type     Type
}

func (*TypeAliasStat) RTTIKind() Kind { return KindTypeAliasStat }

type ReturnStat struct {
	statBase
	Values []Expr
}

func (*ReturnStat) RTTIKind() Kind { return KindReturnStat }

type BreakStat struct{ statBase }

func (*BreakStat) RTTIKind() Kind { return KindBreakStat }

type ContinueStat struct{ statBase }

func (*ContinueStat) RTTIKind() Kind { return KindContinueStat }

type ExprStat struct {
	statBase
	Call Expr
	// DiscardResult is set by unused_return_optimizer (spec §4.8).
	DiscardResult bool
}

func (*ExprStat) RTTIKind() Kind { return KindExprStat }

// ErrorStat is the synthetic node the parser inserts at a recovery point so
// the tree stays well-formed after a syntax error (spec §4.6).
type ErrorStat struct {
	statBase
	Message string
}

func (*ErrorStat) RTTIKind() Kind { return KindErrorStat }

// ---- Types ----

type Type interface {
	Node
	typeNode()
}

type typeBase struct{ base }

func (typeBase) typeNode() {}

type NamedType struct {
	typeBase
	Name     string
	Generics []Type
}

func (*NamedType) RTTIKind() Kind { return KindNamedType }

type TableTypeProp struct {
	Name string
	Type Type
}

type TableType struct {
	typeBase
	Props   []TableTypeProp
	Indexer Type // nil if none
}

func (*TableType) RTTIKind() Kind { return KindTableType }

type FunctionType struct {
	typeBase
	Generics   []string
	Params     []Type
	Variadic   Type // nil if not variadic
	Return     []Type
}

func (*FunctionType) RTTIKind() Kind { return KindFunctionType }

type UnionType struct {
	typeBase
	Options []Type
}

func (*UnionType) RTTIKind() Kind { return KindUnionType }

type IntersectionType struct {
	typeBase
	Options []Type
}

func (*IntersectionType) RTTIKind() Kind { return KindIntersectionType }
