package pass

// ID identifies a single analysis pass. Built-in passes use the constants
// below; plug-in passes may declare their own.
type ID string

const (
	SymbolTable    ID = "symbol-table"
	SyntaxAnalysis ID = "syntax-analysis"
	TypeIndex      ID = "type-index"
	CallGraph      ID = "call-graph"
	IRGeneration   ID = "ir-generation"
	DataFlow       ID = "data-flow"
	GoSSA          ID = "go-ssa"
)

func (id ID) String() string { return string(id) }

// Level is the granularity a pass operates at.
type Level int

const (
	LevelProgram Level = iota
	LevelContract
	LevelFunction
	LevelBlock
	LevelStatement
	LevelExpression
	LevelVariable
)

func (l Level) String() string {
	switch l {
	case LevelProgram:
		return "program"
	case LevelContract:
		return "contract"
	case LevelFunction:
		return "function"
	case LevelBlock:
		return "block"
	case LevelStatement:
		return "statement"
	case LevelExpression:
		return "expression"
	case LevelVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Representation is the program representation a pass reads.
type Representation int

const (
	AST Representation = iota
	IR
	Hybrid
)

func (r Representation) String() string {
	switch r {
	case AST:
		return "ast"
	case IR:
		return "ir"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// RequiresIR reports whether passes of this representation need IR units.
func (r Representation) RequiresIR() bool { return r == IR || r == Hybrid }

// Pass describes a schedulable unit of analysis.
type Pass interface {
	ID() ID
	Name() string
	Description() string
	Level() Level
	Representation() Representation
	Dependencies() []ID
}

// Analysis is a Pass that can be executed against a Context. Run reads
// earlier artifacts from the context and publishes its own.
type Analysis interface {
	Pass
	Run(ctx *Context) error
	IsCompleted(ctx *Context) bool
}

// Info is a static pass descriptor.
type Info struct {
	ID             ID
	Name           string
	Description    string
	Level          Level
	Representation Representation
	Requires       []ID
}

// Func adapts an Info and a function into an Analysis.
type Func struct {
	Info Info
	Fn   func(ctx *Context) error
}

// NewFunc returns an Analysis that runs fn.
func NewFunc(info Info, fn func(ctx *Context) error) *Func {
	if info.Name == "" {
		info.Name = string(info.ID)
	}
	return &Func{Info: info, Fn: fn}
}

func (f *Func) ID() ID                         { return f.Info.ID }
func (f *Func) Name() string                   { return f.Info.Name }
func (f *Func) Description() string            { return f.Info.Description }
func (f *Func) Level() Level                   { return f.Info.Level }
func (f *Func) Representation() Representation { return f.Info.Representation }
func (f *Func) Dependencies() []ID             { return f.Info.Requires }

func (f *Func) Run(ctx *Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}

func (f *Func) IsCompleted(ctx *Context) bool { return ctx.IsCompleted(f.Info.ID) }
