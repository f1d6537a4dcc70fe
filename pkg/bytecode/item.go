package bytecode

import (
	"fmt"
	"strings"
)

// Location identifies a position in a source file. The zero value means
// "unknown"; emitters that strip debug info leave locations zero.
type Location struct {
	File   string
	Line   int32
	Column int32
}

// IsValid reports whether the location carries real source information.
func (l Location) IsValid() bool {
	return l.Line > 0
}

func (l Location) String() string {
	if !l.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// RefKind classifies a reference descriptor.
type RefKind uint8

const (
	RefLocal RefKind = iota + 1
	RefArgument
	RefField
	RefGlobal
	RefSelf
	RefUsr
)

func (k RefKind) String() string {
	switch k {
	case RefLocal:
		return "local"
	case RefArgument:
		return "arg"
	case RefField:
		return "field"
	case RefGlobal:
		return "global"
	case RefSelf:
		return "self"
	case RefUsr:
		return "usr"
	default:
		return fmt.Sprintf("RefKind(%d)", uint8(k))
	}
}

// Reference is a descriptor naming a storage location: a local or argument
// slot, a named field, a global slot, or one of the implicit receivers.
type Reference struct {
	Kind  RefKind
	Index int32  // slot index for local/arg/global
	Name  string // field name for RefField
}

func (r Reference) String() string {
	switch r.Kind {
	case RefField:
		return fmt.Sprintf("field(%s)", r.Name)
	case RefSelf, RefUsr:
		return r.Kind.String()
	default:
		return fmt.Sprintf("%s(%d)", r.Kind, r.Index)
	}
}

// Arg is a typed instruction argument.
type Arg interface {
	ArgKind() ArgKind
	fmt.Stringer
}

// IntArg is a plain integer argument.
type IntArg int32

// FloatArg is a float constant argument.
type FloatArg float32

// StringArg is a string-table index.
type StringArg int32

// ResourceArg is a resource-table index.
type ResourceArg int32

// TypeArg is a type id.
type TypeArg int32

// RefArg is a reference descriptor argument.
type RefArg Reference

// LabelArg is a jump-target label name.
type LabelArg string

// ListSizeArg is an element or argument count.
type ListSizeArg int32

func (IntArg) ArgKind() ArgKind      { return ArgKindInt }
func (FloatArg) ArgKind() ArgKind    { return ArgKindFloat }
func (StringArg) ArgKind() ArgKind   { return ArgKindString }
func (ResourceArg) ArgKind() ArgKind { return ArgKindResource }
func (TypeArg) ArgKind() ArgKind     { return ArgKindType }
func (RefArg) ArgKind() ArgKind      { return ArgKindRef }
func (LabelArg) ArgKind() ArgKind    { return ArgKindLabel }
func (ListSizeArg) ArgKind() ArgKind { return ArgKindListSize }

func (a IntArg) String() string      { return fmt.Sprintf("%d", int32(a)) }
func (a FloatArg) String() string    { return fmt.Sprintf("%g", float32(a)) }
func (a StringArg) String() string   { return fmt.Sprintf("str:%d", int32(a)) }
func (a ResourceArg) String() string { return fmt.Sprintf("res:%d", int32(a)) }
func (a TypeArg) String() string     { return fmt.Sprintf("type:%d", int32(a)) }
func (a RefArg) String() string      { return Reference(a).String() }
func (a LabelArg) String() string    { return string(a) }
func (a ListSizeArg) String() string { return fmt.Sprintf("#%d", int32(a)) }

// Item is one element of an annotated bytecode stream. The three concrete
// kinds are *Instruction, *Label and *LocalVariable; transforms type-switch
// over them.
type Item interface {
	Location() Location
	SetLocation(Location)
	fmt.Stringer
}

// Instruction is an opcode with its typed arguments.
type Instruction struct {
	Op   Opcode
	Args []Arg
	Loc  Location

	// StackHint is the emitter's stack-delta annotation, when present.
	StackHint    int32
	HasStackHint bool
}

// Inst builds an instruction without location info.
func Inst(op Opcode, args ...Arg) *Instruction {
	return &Instruction{Op: op, Args: args}
}

// Location returns the instruction's source location.
func (in *Instruction) Location() Location { return in.Loc }

// SetLocation replaces the instruction's source location.
func (in *Instruction) SetLocation(loc Location) { in.Loc = loc }

func (in *Instruction) String() string {
	if len(in.Args) == 0 {
		return in.Op.String()
	}
	parts := make([]string, len(in.Args))
	for i, a := range in.Args {
		parts[i] = a.String()
	}
	return in.Op.String() + " " + strings.Join(parts, ", ")
}

// FloatAt returns argument i as a float constant.
// A kind mismatch is a programmer error in the caller.
func (in *Instruction) FloatAt(i int) float32 {
	return float32(in.argAt(i).(FloatArg))
}

// StringAt returns argument i as a string-table index.
func (in *Instruction) StringAt(i int) int32 {
	return int32(in.argAt(i).(StringArg))
}

// ResourceAt returns argument i as a resource-table index.
func (in *Instruction) ResourceAt(i int) int32 {
	return int32(in.argAt(i).(ResourceArg))
}

// TypeAt returns argument i as a type id.
func (in *Instruction) TypeAt(i int) int32 {
	return int32(in.argAt(i).(TypeArg))
}

// RefAt returns argument i as a reference descriptor.
func (in *Instruction) RefAt(i int) Reference {
	return Reference(in.argAt(i).(RefArg))
}

// LabelAt returns argument i as a label name.
func (in *Instruction) LabelAt(i int) string {
	return string(in.argAt(i).(LabelArg))
}

// ListSizeAt returns argument i as an element count.
func (in *Instruction) ListSizeAt(i int) int32 {
	return int32(in.argAt(i).(ListSizeArg))
}

func (in *Instruction) argAt(i int) Arg {
	if i < 0 || i >= len(in.Args) {
		panic(fmt.Sprintf("bytecode: %s has no argument %d", in.Op, i))
	}
	return in.Args[i]
}

// StackEffect returns the instruction's net stack effect, computing the
// variable-effect opcodes from their count arguments.
func (in *Instruction) StackEffect() int {
	info := Metadata(in.Op)
	if !info.VarEffect {
		return info.StackDelta
	}
	switch in.Op {
	case OpPushNFloats, OpPushNStrings, OpPushNResources, OpPushNRefs:
		return int(in.ListSizeAt(0))
	case OpPushNOfStringFloats:
		return 2 * int(in.ListSizeAt(0))
	case OpFormatString:
		return 1 - int(in.ListSizeAt(1))
	case OpCreateList, OpPickUnweighted:
		return 1 - int(in.ListSizeAt(0))
	case OpCreateAssociativeList, OpPickWeighted:
		return 1 - 2*int(in.ListSizeAt(0))
	case OpCall, OpCallStatement:
		n := int(in.ListSizeAt(1))
		if in.Op == OpCallStatement {
			return -n
		}
		return 1 - n
	case OpDereferenceCall:
		return -int(in.ListSizeAt(1))
	case OpCreateObject:
		return -int(in.ListSizeAt(0))
	default:
		panic(fmt.Sprintf("bytecode: %s marked variable-effect but not computed", in.Op))
	}
}

// Label marks a jump target in the stream.
type Label struct {
	Name string
	Loc  Location
}

// NewLabel builds a label item.
func NewLabel(name string) *Label { return &Label{Name: name} }

// Location returns the label's source location.
func (l *Label) Location() Location { return l.Loc }

// SetLocation replaces the label's source location.
func (l *Label) SetLocation(loc Location) { l.Loc = loc }

func (l *Label) String() string { return l.Name + ":" }

// LocalVariable is a declaration pseudo-instruction carrying debug metadata.
// It passes through transformations untouched.
type LocalVariable struct {
	Name   string
	Remove bool // true for the end-of-scope marker
	Loc    Location
}

// Location returns the declaration's source location.
func (lv *LocalVariable) Location() Location { return lv.Loc }

// SetLocation replaces the declaration's source location.
func (lv *LocalVariable) SetLocation(loc Location) { lv.Loc = loc }

func (lv *LocalVariable) String() string {
	if lv.Remove {
		return fmt.Sprintf("; endlocal %s", lv.Name)
	}
	return fmt.Sprintf("; local %s", lv.Name)
}
