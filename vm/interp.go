package vm

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tliron/commonlog"

	"github.com/chazu/cubescript/pkg/bytecode"
)

// Engine limits.
const (
	MaxArgs     = 25  // argument slots arg1..arg25
	MaxComArgs  = 12  // fixed arguments a native command may declare
	MaxResults  = 7   // sub-expression results kept inline before spilling to ENTER
	MaxRunDepth = 255 // default nesting limit for code execution
)

// ---------------------------------------------------------------------------
// Interp: one CubeScript world
// ---------------------------------------------------------------------------

// Interp holds the identifier table, the binding stacks and the engine
// state. It is single-threaded: a script runs to completion within one call
// and commands may re-enter the engine synchronously. Callers sharing an
// Interp across goroutines must serialize all entry points.
type Interp struct {
	Table

	// Console receives script output and warnings.
	Console Console

	// MaxRunDepth bounds nested code execution. Deeper blocks are skipped.
	MaxRunDepth int

	// Trace logs every dispatched instruction at debug level.
	Trace bool

	// Dir resolves relative paths given to exec.
	Dir string

	log commonlog.Logger

	identFlags Flags
	links      []link
	aliasStack int
	frames     []*frame
	runDepth   int
	ret        *Value
	result     Value
	dummy      *Ident
	noDebug    int

	numArgs       int32
	dbgAlias      int32
	persistIdents int32
}

// New creates an interpreter with the argument slots, the control
// pseudo-commands and the core command library registered.
func New() *Interp {
	in := &Interp{
		Table:       newTable(),
		Console:     NewLogConsole(),
		MaxRunDepth: MaxRunDepth,
		log:         commonlog.GetLogger("cubescript.vm"),
		identFlags:  FlagPersist,
	}
	in.resetLinks()
	in.registerCore()
	in.registerLibrary()
	return in
}

func (in *Interp) registerCore() {
	for i := 1; i <= MaxArgs; i++ {
		in.add(&Ident{Kind: KindAlias, Name: fmt.Sprintf("arg%d", i), Flags: FlagArg})
	}
	in.dummy, _ = in.add(&Ident{Kind: KindAlias, Name: "//dummy", Flags: FlagArg})

	MustRegister(in.RegisterIntVar(IntVarDef{Name: "numargs", Min: MaxArgs, Max: 0, Storage: &in.numArgs}))
	MustRegister(in.RegisterIntVar(IntVarDef{Name: "dbgalias", Min: 0, Default: 4, Max: 1000, Storage: &in.dbgAlias}))
	MustRegister(in.RegisterIntVar(IntVarDef{
		Name: "persistidents", Min: 0, Default: 1, Max: 1, Storage: &in.persistIdents,
		OnChange: WatchFunc(func(in *Interp, id *Ident) {
			if in.persistIdents != 0 {
				in.identFlags |= FlagPersist
			} else {
				in.identFlags &^= FlagPersist
			}
		}),
	}))

	MustRegister(in.registerBuiltin(KindLocal, "local", "", nil, 0))
	MustRegister(in.registerBuiltin(KindDo, "do", "e", cmdDo, 0))
	MustRegister(in.registerBuiltin(KindDoArgs, "doargs", "e", cmdDoArgs, 0))
	MustRegister(in.registerBuiltin(KindIf, "if", "tee", cmdIf, 0))
	MustRegister(in.registerBuiltin(KindResult, "result", "T", cmdResult, 0))
	MustRegister(in.registerBuiltin(KindNot, "!", "t", cmdNot, 0))
	MustRegister(in.registerBuiltin(KindAnd, "&&", "E1V", cmdAnd, 0))
	MustRegister(in.registerBuiltin(KindOr, "||", "E1V", cmdOr, 0))
}

// ---------------------------------------------------------------------------
// Execution entry points
// ---------------------------------------------------------------------------

// Compile turns source text into a block. Compilation never fails: syntax
// problems are reported to the console and the offending text is skipped.
func (in *Interp) Compile(src, name string) *bytecode.Block {
	return in.compileMain(src, name, TypeAny)
}

// Execute compiles and runs src and returns the value of its last statement.
// The error is non-nil only for corrupt bytecode; script problems are
// reported to the console.
func (in *Interp) Execute(src string) (Value, error) {
	return in.protect(func(result *Value) {
		in.run(Code{Block: in.Compile(src, ""), PC: 1}, result)
	})
}

// ExecuteBlock runs a compiled block from its first instruction.
func (in *Interp) ExecuteBlock(b *bytecode.Block) (Value, error) {
	return in.ExecuteCode(Code{Block: b, PC: 1})
}

// ExecuteCode runs compiled code up to its matching EXIT.
func (in *Interp) ExecuteCode(c Code) (Value, error) {
	if c.Block == nil {
		return NullVal, nil
	}
	return in.protect(func(result *Value) {
		in.run(c, result)
	})
}

// ExecuteIdent invokes an alias or command with the given arguments, as if
// it were called by name from a script.
func (in *Interp) ExecuteIdent(id *Ident, args ...Value) (Value, error) {
	if len(args) > MaxArgs {
		args = args[:MaxArgs]
	}
	return in.protect(func(result *Value) {
		switch id.Kind {
		case KindAlias:
			if id.Flags&FlagUnknown != 0 {
				in.debugf("unknown command: %s", id.Name)
				return
			}
			in.callAlias(id, args, bytecode.RetNull, result)
		default:
			if id.fn == nil {
				return
			}
			prev := in.ret
			in.ret = result
			defer func() { in.ret = prev }()
			in.callCommand(id, args, false)
		}
	})
}

// Call invokes the named alias or command.
func (in *Interp) Call(name string, args ...Value) (Value, error) {
	id := in.Find(name)
	if id == nil {
		return NullVal, fmt.Errorf("%s: %w", name, ErrUnknownIdent)
	}
	return in.ExecuteIdent(id, args...)
}

// ExecFile runs a script file. Relative paths are resolved against Dir.
func (in *Interp) ExecFile(path string) error {
	var err error
	_, perr := in.protect(func(result *Value) {
		err = in.execFile(path, result)
	})
	if perr != nil {
		return perr
	}
	return err
}

func (in *Interp) execFile(path string, result *Value) error {
	if !filepath.IsAbs(path) && in.Dir != "" {
		path = filepath.Join(in.Dir, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	in.log.Infof("executing %s", path)
	in.run(Code{Block: in.Compile(string(src), path), PC: 1}, result)
	return nil
}

// Result returns the value of the most recently completed top-level
// execution.
func (in *Interp) Result() Value {
	return in.result
}

// protect runs fn with recovery for engine invariant violations. Deferred
// binding restores have already run by the time the panic reaches here.
func (in *Interp) protect(fn func(result *Value)) (v Value, err error) {
	depth, ret := in.runDepth, in.ret
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *InvariantError:
				err = e
			case runtime.Error:
				err = &InvariantError{Msg: e.Error()}
			default:
				panic(r)
			}
			in.runDepth, in.ret = depth, ret
			in.log.Errorf("%s", err)
			v = NullVal
		}
	}()
	var result Value
	fn(&result)
	in.result = result
	return result, nil
}

// ---------------------------------------------------------------------------
// Command results
// ---------------------------------------------------------------------------

// Ret sets the result of the running command.
func (in *Interp) Ret(v Value) {
	if in.ret != nil {
		*in.ret = v
	}
}

// IntRet sets an integer result.
func (in *Interp) IntRet(i int32) { in.Ret(Int(i)) }

// FloatRet sets a float result.
func (in *Interp) FloatRet(f float32) { in.Ret(Float(f)) }

// StrRet sets a string result.
func (in *Interp) StrRet(s string) { in.Ret(Str(s)) }

// RunValue executes a code or string value and returns its result. Other
// values are returned materialized.
func (in *Interp) RunValue(v Value) Value {
	var result Value
	in.runValue(v, &result)
	return result
}

func (in *Interp) runValue(v Value, result *Value) {
	switch v.typ {
	case TypeCode:
		in.run(v.code, result)
	case TypeStr, TypeMacro, TypeCStr:
		in.run(Code{Block: in.Compile(v.s, ""), PC: 1}, result)
	default:
		*result = v.GetVal()
	}
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// GetValue returns the current value of a variable or alias.
func (in *Interp) GetValue(name string) (Value, error) {
	id := in.Find(name)
	if id == nil {
		return NullVal, fmt.Errorf("%s: %w", name, ErrUnknownIdent)
	}
	return id.Value(), nil
}

// Set writes a variable or alias from native code. Variables are clamped and
// notify their watcher like script writes do.
func (in *Interp) Set(name string, v Value) error {
	id := in.Find(name)
	switch {
	case id == nil:
		in.setAliasByName(name, v)
		return nil
	case id.readOnly():
		return fmt.Errorf("%s: %w", name, ErrReadOnly)
	case id.Kind.IsVar(), id.Kind == KindAlias:
		in.setIdent(id, v)
		return nil
	}
	return fmt.Errorf("%s is a %s: %w", name, id.Kind, ErrReadOnly)
}

// SetOverrideMode makes subsequent writes overriding. Overridden values are
// reverted by ClearOverrides.
func (in *Interp) SetOverrideMode(on bool) {
	if on {
		in.identFlags |= FlagOverridden
	} else {
		in.identFlags &^= FlagOverridden
	}
}

// ClearOverrides reverts every overridden identifier.
func (in *Interp) ClearOverrides() {
	for _, id := range in.byIndex {
		in.clearOverride(id)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// debugf reports a script problem to the console followed by the alias call
// chain, unless a nodebug block is running.
func (in *Interp) debugf(format string, args ...any) {
	if in.noDebug > 0 {
		return
	}
	in.Console.Warnf(format, args...)
	in.traceAliases()
}

func (in *Interp) traceAliases() {
	if in.dbgAlias <= 0 {
		return
	}
	limit := int(in.dbgAlias)
	total := 0
	for h := in.aliasStack; h != noAlias; h = in.links[h].prev {
		total++
	}
	depth := 0
	for h := in.aliasStack; h != noAlias; h = in.links[h].prev {
		l := in.links[h]
		depth++
		name := ""
		if l.id != nil {
			name = l.id.Name
		}
		switch {
		case depth < limit:
			in.Console.Warnf("  %d) %s", total-depth+1, name)
		case l.prev == noAlias && depth == limit:
			in.Console.Warnf("  %d) %s", total-depth+1, name)
		case l.prev == noAlias:
			in.Console.Warnf("  ..%d) %s", total-depth+1, name)
		}
	}
}
