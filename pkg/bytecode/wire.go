package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Procedure is one proc's annotated item stream, the unit of optimization
// and of serialization.
type Procedure struct {
	Name  string
	Items []Item
}

// cborEncMode uses canonical mode for deterministic encoding, so a
// procedure's bytes are stable input for content hashing.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	wireKindInstruction uint8 = 1
	wireKindLabel       uint8 = 2
	wireKindLocalVar    uint8 = 3
)

type wireRef struct {
	Kind  uint8  `cbor:"k"`
	Index int32  `cbor:"i,omitempty"`
	Name  string `cbor:"n,omitempty"`
}

type wireArg struct {
	Kind  uint8    `cbor:"k"`
	Int   int32    `cbor:"i,omitempty"`
	Float float32  `cbor:"f,omitempty"`
	Str   string   `cbor:"s,omitempty"`
	Ref   *wireRef `cbor:"r,omitempty"`
}

type wireItem struct {
	Kind   uint8     `cbor:"k"`
	Op     uint8     `cbor:"o,omitempty"`
	Args   []wireArg `cbor:"a,omitempty"`
	Name   string    `cbor:"n,omitempty"`
	Remove bool      `cbor:"rm,omitempty"`
	File   string    `cbor:"sf,omitempty"`
	Line   int32     `cbor:"sl,omitempty"`
	Col    int32     `cbor:"sc,omitempty"`
	Hint   *int32    `cbor:"h,omitempty"`
}

type wireProcedure struct {
	Name  string     `cbor:"n"`
	Items []wireItem `cbor:"it"`
}

// MarshalProcedure serializes a procedure to CBOR bytes.
func MarshalProcedure(p *Procedure) ([]byte, error) {
	wp := wireProcedure{Name: p.Name, Items: make([]wireItem, 0, len(p.Items))}
	for _, item := range p.Items {
		wi, err := itemToWire(item)
		if err != nil {
			return nil, fmt.Errorf("bytecode: marshal %s: %w", p.Name, err)
		}
		wp.Items = append(wp.Items, wi)
	}
	return cborEncMode.Marshal(&wp)
}

// UnmarshalProcedure deserializes a procedure from CBOR bytes.
func UnmarshalProcedure(data []byte) (*Procedure, error) {
	var wp wireProcedure
	if err := cbor.Unmarshal(data, &wp); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal procedure: %w", err)
	}
	p := &Procedure{Name: wp.Name, Items: make([]Item, 0, len(wp.Items))}
	for i, wi := range wp.Items {
		item, err := wireToItem(wi)
		if err != nil {
			return nil, fmt.Errorf("bytecode: unmarshal %s item %d: %w", wp.Name, i, err)
		}
		p.Items = append(p.Items, item)
	}
	return p, nil
}

func itemToWire(item Item) (wireItem, error) {
	loc := item.Location()
	wi := wireItem{File: loc.File, Line: loc.Line, Col: loc.Column}
	switch it := item.(type) {
	case *Instruction:
		wi.Kind = wireKindInstruction
		wi.Op = uint8(it.Op)
		if it.HasStackHint {
			hint := it.StackHint
			wi.Hint = &hint
		}
		for _, a := range it.Args {
			wa, err := argToWire(a)
			if err != nil {
				return wireItem{}, fmt.Errorf("%s: %w", it.Op, err)
			}
			wi.Args = append(wi.Args, wa)
		}
	case *Label:
		wi.Kind = wireKindLabel
		wi.Name = it.Name
	case *LocalVariable:
		wi.Kind = wireKindLocalVar
		wi.Name = it.Name
		wi.Remove = it.Remove
	default:
		return wireItem{}, fmt.Errorf("unsupported item type %T", item)
	}
	return wi, nil
}

func wireToItem(wi wireItem) (Item, error) {
	loc := Location{File: wi.File, Line: wi.Line, Column: wi.Col}
	switch wi.Kind {
	case wireKindInstruction:
		in := &Instruction{Op: Opcode(wi.Op), Loc: loc}
		if wi.Hint != nil {
			in.StackHint = *wi.Hint
			in.HasStackHint = true
		}
		for _, wa := range wi.Args {
			a, err := wireToArg(wa)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", in.Op, err)
			}
			in.Args = append(in.Args, a)
		}
		return in, nil
	case wireKindLabel:
		return &Label{Name: wi.Name, Loc: loc}, nil
	case wireKindLocalVar:
		return &LocalVariable{Name: wi.Name, Remove: wi.Remove, Loc: loc}, nil
	default:
		return nil, fmt.Errorf("unknown item kind %d", wi.Kind)
	}
}

func argToWire(a Arg) (wireArg, error) {
	switch v := a.(type) {
	case IntArg:
		return wireArg{Kind: uint8(ArgKindInt), Int: int32(v)}, nil
	case FloatArg:
		return wireArg{Kind: uint8(ArgKindFloat), Float: float32(v)}, nil
	case StringArg:
		return wireArg{Kind: uint8(ArgKindString), Int: int32(v)}, nil
	case ResourceArg:
		return wireArg{Kind: uint8(ArgKindResource), Int: int32(v)}, nil
	case TypeArg:
		return wireArg{Kind: uint8(ArgKindType), Int: int32(v)}, nil
	case RefArg:
		return wireArg{Kind: uint8(ArgKindRef), Ref: &wireRef{Kind: uint8(v.Kind), Index: v.Index, Name: v.Name}}, nil
	case LabelArg:
		return wireArg{Kind: uint8(ArgKindLabel), Str: string(v)}, nil
	case ListSizeArg:
		return wireArg{Kind: uint8(ArgKindListSize), Int: int32(v)}, nil
	default:
		return wireArg{}, fmt.Errorf("unsupported argument type %T", a)
	}
}

func wireToArg(wa wireArg) (Arg, error) {
	switch ArgKind(wa.Kind) {
	case ArgKindInt:
		return IntArg(wa.Int), nil
	case ArgKindFloat:
		return FloatArg(wa.Float), nil
	case ArgKindString:
		return StringArg(wa.Int), nil
	case ArgKindResource:
		return ResourceArg(wa.Int), nil
	case ArgKindType:
		return TypeArg(wa.Int), nil
	case ArgKindRef:
		if wa.Ref == nil {
			return nil, fmt.Errorf("ref argument missing descriptor")
		}
		return RefArg(Reference{Kind: RefKind(wa.Ref.Kind), Index: wa.Ref.Index, Name: wa.Ref.Name}), nil
	case ArgKindLabel:
		return LabelArg(wa.Str), nil
	case ArgKindListSize:
		return ListSizeArg(wa.Int), nil
	default:
		return nil, fmt.Errorf("unknown argument kind %d", wa.Kind)
	}
}
