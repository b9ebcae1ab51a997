// Package ast defines the Quill syntax tree node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all syntax tree nodes.
// The set of implementations is closed: see the sealed marker.
type Node interface {
	Kind() string
	NodeSpan() Span
	node() // sealed marker
}

// Node-kind tags.
const (
	KindProgram          = "program"
	KindBlock            = "block"
	KindNum              = "num"
	KindFloat            = "float"
	KindStr              = "str"
	KindVarAssign        = "var_assign"
	KindVar              = "var"
	KindListAssign       = "list_assign"
	KindListIndex        = "list_index"
	KindPop              = "pop"
	KindPush             = "push"
	KindIf               = "if_stmt"
	KindElseIf           = "else_if"
	KindElse             = "else"
	KindFuncDef          = "func_def"
	KindFuncCall         = "func_call"
	KindReturn           = "return"
	KindForiLoop         = "fori_loop"
	KindForiLoopSetup    = "fori_loop_setup"
	KindForeachLoop      = "foreach_loop"
	KindForeachLoopSetup = "foreach_loop_setup"
	KindPrint            = "print"
	KindLen              = "len"
)

// ArithOp is an arithmetic operator. Its string form is the node-kind tag.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
	OpMod ArithOp = "%"
)

// RelOp is a relational operator. Condition nodes are tagged "condition_" + op.
type RelOp string

const (
	OpEq RelOp = "=="
	OpNe RelOp = "!="
	OpGt RelOp = ">"
	OpLt RelOp = "<"
	OpGe RelOp = ">="
	OpLe RelOp = "<="
)

// ConditionPrefix prefixes relational operators in condition node tags.
const ConditionPrefix = "condition_"

// --- Program structure ---

type Program struct {
	Span Span
	Body *Block
}

func (n *Program) Kind() string   { return KindProgram }
func (n *Program) NodeSpan() Span { return n.Span }
func (n *Program) node()          {}

// Block is an ordered sequence of nodes evaluated one after another.
type Block struct {
	Span  Span
	Nodes []Node
}

func (n *Block) Kind() string   { return KindBlock }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) node()          {}

// --- Literals ---

type NumLiteral struct {
	Span  Span
	Value int64
}

func (n *NumLiteral) Kind() string   { return KindNum }
func (n *NumLiteral) NodeSpan() Span { return n.Span }
func (n *NumLiteral) node()          {}

type FloatLiteral struct {
	Span  Span
	Value float64
}

func (n *FloatLiteral) Kind() string   { return KindFloat }
func (n *FloatLiteral) NodeSpan() Span { return n.Span }
func (n *FloatLiteral) node()          {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return KindStr }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) node()          {}

// --- Variables and lists ---

type VarAssign struct {
	Span  Span
	Name  string
	Value Node
}

func (n *VarAssign) Kind() string   { return KindVarAssign }
func (n *VarAssign) NodeSpan() Span { return n.Span }
func (n *VarAssign) node()          {}

type Var struct {
	Span Span
	Name string
}

func (n *Var) Kind() string   { return KindVar }
func (n *Var) NodeSpan() Span { return n.Span }
func (n *Var) node()          {}

// ListAssign binds a list literal. A nil Elements slice means the literal was empty.
type ListAssign struct {
	Span     Span
	Name     string
	Elements []Node
}

func (n *ListAssign) Kind() string   { return KindListAssign }
func (n *ListAssign) NodeSpan() Span { return n.Span }
func (n *ListAssign) node()          {}

type ListIndex struct {
	Span  Span
	Name  string
	Index Node
}

func (n *ListIndex) Kind() string   { return KindListIndex }
func (n *ListIndex) NodeSpan() Span { return n.Span }
func (n *ListIndex) node()          {}

type Pop struct {
	Span Span
	Name string
}

func (n *Pop) Kind() string   { return KindPop }
func (n *Pop) NodeSpan() Span { return n.Span }
func (n *Pop) node()          {}

type Push struct {
	Span  Span
	Name  string
	Value Node
}

func (n *Push) Kind() string   { return KindPush }
func (n *Push) NodeSpan() Span { return n.Span }
func (n *Push) node()          {}

// --- Control flow ---

// If is an if / else-if / else chain. ElseIfs and Else may be empty.
type If struct {
	Span    Span
	Cond    Node
	Body    *Block
	ElseIfs []*ElseIf
	Else    *Else
}

func (n *If) Kind() string   { return KindIf }
func (n *If) NodeSpan() Span { return n.Span }
func (n *If) node()          {}

type ElseIf struct {
	Span Span
	Cond Node
	Body *Block
}

func (n *ElseIf) Kind() string   { return KindElseIf }
func (n *ElseIf) NodeSpan() Span { return n.Span }
func (n *ElseIf) node()          {}

type Else struct {
	Span Span
	Body *Block
}

func (n *Else) Kind() string   { return KindElse }
func (n *Else) NodeSpan() Span { return n.Span }
func (n *Else) node()          {}

type Condition struct {
	Span  Span
	Op    RelOp
	Left  Node
	Right Node
}

func (n *Condition) Kind() string   { return ConditionPrefix + string(n.Op) }
func (n *Condition) NodeSpan() Span { return n.Span }
func (n *Condition) node()          {}

type BinaryExpr struct {
	Span  Span
	Op    ArithOp
	Left  Node
	Right Node
}

func (n *BinaryExpr) Kind() string   { return string(n.Op) }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) node()          {}

// --- Functions ---

type FuncDef struct {
	Span   Span
	Name   string
	Params []string
	Body   *Block
}

func (n *FuncDef) Kind() string   { return KindFuncDef }
func (n *FuncDef) NodeSpan() Span { return n.Span }
func (n *FuncDef) node()          {}

type FuncCall struct {
	Span Span
	Name string
	Args []Node
}

func (n *FuncCall) Kind() string   { return KindFuncCall }
func (n *FuncCall) NodeSpan() Span { return n.Span }
func (n *FuncCall) node()          {}

type Return struct {
	Span  Span
	Value Node
}

func (n *Return) Kind() string   { return KindReturn }
func (n *Return) NodeSpan() Span { return n.Span }
func (n *Return) node()          {}

// --- Loops ---

type ForiLoop struct {
	Span  Span
	Setup *ForiLoopSetup
	Body  *Block
}

func (n *ForiLoop) Kind() string   { return KindForiLoop }
func (n *ForiLoop) NodeSpan() Span { return n.Span }
func (n *ForiLoop) node()          {}

type ForiLoopSetup struct {
	Span  Span
	Init  *VarAssign
	Limit Node
}

func (n *ForiLoopSetup) Kind() string   { return KindForiLoopSetup }
func (n *ForiLoopSetup) NodeSpan() Span { return n.Span }
func (n *ForiLoopSetup) node()          {}

type ForeachLoop struct {
	Span  Span
	Setup *ForeachLoopSetup
	Body  *Block
}

func (n *ForeachLoop) Kind() string   { return KindForeachLoop }
func (n *ForeachLoop) NodeSpan() Span { return n.Span }
func (n *ForeachLoop) node()          {}

type ForeachLoopSetup struct {
	Span       Span
	Element    string
	Collection string
}

func (n *ForeachLoopSetup) Kind() string   { return KindForeachLoopSetup }
func (n *ForeachLoopSetup) NodeSpan() Span { return n.Span }
func (n *ForeachLoopSetup) node()          {}

// --- Built-ins ---

type Print struct {
	Span  Span
	Value Node
}

func (n *Print) Kind() string   { return KindPrint }
func (n *Print) NodeSpan() Span { return n.Span }
func (n *Print) node()          {}

type Len struct {
	Span  Span
	Value Node
}

func (n *Len) Kind() string   { return KindLen }
func (n *Len) NodeSpan() Span { return n.Span }
func (n *Len) node()          {}

// IsExpr reports whether a node produces a value worth echoing,
// as opposed to a statement evaluated for its effect.
func IsExpr(n Node) bool {
	switch n.(type) {
	case *NumLiteral, *FloatLiteral, *StrLiteral, *Var, *ListIndex, *Pop,
		*Condition, *BinaryExpr, *FuncCall, *Len:
		return true
	}
	return false
}
