package bytecode

import "fmt"

// Opcode identifies a single annotated-bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack pushes and plain stack manipulation (0x00-0x0F)
	// ========================================================================

	OpPushNull           Opcode = 0x00 // Push null
	OpPushFloat          Opcode = 0x01 // Push float constant: OpPushFloat <f>
	OpPushString         Opcode = 0x02 // Push string constant: OpPushString <str>
	OpPushResource       Opcode = 0x03 // Push resource: OpPushResource <res>
	OpPushType           Opcode = 0x04 // Push type id: OpPushType <type>
	OpPushProc           Opcode = 0x05 // Push proc id: OpPushProc <proc>
	OpPushGlobalVars     Opcode = 0x06 // Push the global variable table
	OpPushReferenceValue Opcode = 0x07 // Push the value a reference names: OpPushReferenceValue <ref>
	OpPop                Opcode = 0x08 // Discard top of stack
	OpPopReference       Opcode = 0x09 // Discard top of stack into a reference slot: OpPopReference <ref>
	OpSwap               Opcode = 0x0A // Swap top two stack values

	// ========================================================================
	// Fused constant runs (0x10-0x1F), produced by the peephole rewriter
	// ========================================================================

	OpPushNFloats         Opcode = 0x10 // Push N floats: OpPushNFloats <n> <f...>
	OpPushNStrings        Opcode = 0x11 // Push N strings: OpPushNStrings <n> <str...>
	OpPushNResources      Opcode = 0x12 // Push N resources: OpPushNResources <n> <res...>
	OpPushNRefs           Opcode = 0x13 // Push N reference values: OpPushNRefs <n> <ref...>
	OpPushStringFloat     Opcode = 0x14 // Push a string then a float: OpPushStringFloat <str> <f>
	OpPushNOfStringFloats Opcode = 0x15 // Push N string/float pairs: OpPushNOfStringFloats <n> <str f ...>

	// ========================================================================
	// Assignment (0x20-0x2F)
	// ========================================================================

	OpAssign            Opcode = 0x20 // Pop value, assign to reference, push value back: OpAssign <ref>
	OpAssignPop         Opcode = 0x21 // Pop value, assign to reference: OpAssignPop <ref>
	OpNullRef           Opcode = 0x22 // Assign null to reference: OpNullRef <ref>
	OpAppend            Opcode = 0x23 // ref += value (list append / numeric add)
	OpRemove            Opcode = 0x24 // ref -= value
	OpCombine           Opcode = 0x25 // ref |= value
	OpMask              Opcode = 0x26 // ref &= value
	OpMultiplyReference Opcode = 0x27 // ref *= value
	OpDivideReference   Opcode = 0x28 // ref /= value
	OpModulusReference  Opcode = 0x29 // ref %= value
	OpBitXorReference   Opcode = 0x2A // ref ^= value
	OpIncrement         Opcode = 0x2B // ref++ (pushes prior value)
	OpDecrement         Opcode = 0x2C // ref-- (pushes prior value)

	// ========================================================================
	// Arithmetic and bitwise (0x30-0x3F)
	// ========================================================================

	OpAdd            Opcode = 0x30 // Pop two, push sum
	OpSubtract       Opcode = 0x31 // Pop two, push difference
	OpMultiply       Opcode = 0x32 // Pop two, push product
	OpDivide         Opcode = 0x33 // Pop two, push quotient
	OpModulus        Opcode = 0x34 // Pop two, push remainder
	OpModulusModulus Opcode = 0x35 // Pop two, push floored remainder
	OpPower          Opcode = 0x36 // Pop two, push power
	OpNegate         Opcode = 0x37 // Negate top of stack
	OpAbs            Opcode = 0x38 // Absolute value of top of stack
	OpBitAnd         Opcode = 0x39 // Pop two, push bitwise and
	OpBitOr          Opcode = 0x3A // Pop two, push bitwise or
	OpBitXor         Opcode = 0x3B // Pop two, push bitwise xor
	OpBitNot         Opcode = 0x3C // Bitwise complement of top of stack
	OpBitShiftLeft   Opcode = 0x3D // Pop two, push left shift
	OpBitShiftRight  Opcode = 0x3E // Pop two, push right shift

	// ========================================================================
	// Comparison and type tests (0x40-0x4F)
	// ========================================================================

	OpCompareEquals             Opcode = 0x40
	OpCompareNotEquals          Opcode = 0x41
	OpCompareLessThan           Opcode = 0x42
	OpCompareGreaterThan        Opcode = 0x43
	OpCompareLessThanOrEqual    Opcode = 0x44
	OpCompareGreaterThanOrEqual Opcode = 0x45
	OpCompareEquivalent         Opcode = 0x46
	OpCompareNotEquivalent      Opcode = 0x47
	OpIsNull                    Opcode = 0x48 // Pop value, push whether it is null
	OpIsInList                  Opcode = 0x49 // Pop list and value, push membership
	OpIsInRange                 Opcode = 0x4A // Pop bounds and value, push containment
	OpIsType                    Opcode = 0x4B // Pop type and value, push type test
	OpIsTypeDirect              Opcode = 0x4C // Pop value, test against immediate type: OpIsTypeDirect <type>
	OpIsSaved                   Opcode = 0x4D // Pop field ref, push whether persisted

	// ========================================================================
	// Boolean operations (0x50-0x57); And/Or short-circuit via a label
	// ========================================================================

	OpBooleanNot Opcode = 0x50 // Pop value, push logical negation
	OpBooleanAnd Opcode = 0x51 // Short-circuit and: OpBooleanAnd <label>
	OpBooleanOr  Opcode = 0x52 // Short-circuit or: OpBooleanOr <label>

	// ========================================================================
	// Strings (0x58-0x5F)
	// ========================================================================

	OpFormatString Opcode = 0x58 // Interpolate N stack values: OpFormatString <str> <n>
	OpLength       Opcode = 0x59 // Pop value, push its length

	// ========================================================================
	// Lists (0x60-0x6F)
	// ========================================================================

	OpCreateList            Opcode = 0x60 // Pop N values into a new list: OpCreateList <n>
	OpCreateAssociativeList Opcode = 0x61 // Pop N key/value pairs: OpCreateAssociativeList <n>
	OpCreateListNFloats     Opcode = 0x62 // New list from immediate floats: OpCreateListNFloats <n> <f...>
	OpCreateListNStrings    Opcode = 0x63 // New list from immediate strings
	OpCreateListNResources  Opcode = 0x64 // New list from immediate resources
	OpCreateListNRefs       Opcode = 0x65 // New list from immediate reference values
	OpDereferenceIndex      Opcode = 0x66 // Pop index and list, push element
	OpAppendNoPush          Opcode = 0x67 // Append without pushing the list back

	// ========================================================================
	// Enumerators (0x70-0x77)
	// ========================================================================

	OpCreateListEnumerator         Opcode = 0x70 // Pop list, open an enumerator
	OpCreateFilteredListEnumerator Opcode = 0x71 // Enumerator filtered by type: <type>
	OpCreateTypeEnumerator         Opcode = 0x72 // Enumerate world contents of a type: <type>
	OpCreateRangeEnumerator        Opcode = 0x73 // Pop start/end/step, open an enumerator
	OpEnumerate                    Opcode = 0x74 // Advance, assign to ref, jump when done: OpEnumerate <ref> <label>
	OpEnumerateNoAssign            Opcode = 0x75 // Advance, jump when done: OpEnumerateNoAssign <label>
	OpDestroyEnumerator            Opcode = 0x76 // Close the innermost enumerator

	// ========================================================================
	// Field dereference (0x78-0x7F)
	// ========================================================================

	OpDereferenceField           Opcode = 0x78 // Pop object, push named field: OpDereferenceField <str>
	OpPushRefAndDereferenceField Opcode = 0x79 // Push field of a referenced object: <ref> <str>
	OpInitial                    Opcode = 0x7A // Pop field ref, push its initial value

	// ========================================================================
	// Control flow (0x80-0x9F)
	// ========================================================================

	OpJump                 Opcode = 0x80 // Unconditional jump: OpJump <label>
	OpJumpIfFalse          Opcode = 0x81 // Pop value, jump when falsy: OpJumpIfFalse <label>
	OpJumpIfTrue           Opcode = 0x82 // Pop value, jump when truthy: OpJumpIfTrue <label>
	OpJumpIfNull           Opcode = 0x83 // Pop value, jump when null: OpJumpIfNull <label>
	OpJumpIfNullNoPop      Opcode = 0x84 // Peek value, jump when null: OpJumpIfNullNoPop <label>
	OpJumpIfFalseReference Opcode = 0x85 // Jump when a reference holds a falsy value: <ref> <label>
	OpJumpIfTrueReference  Opcode = 0x86 // Jump when a reference holds a truthy value: <ref> <label>
	OpSwitchCase           Opcode = 0x87 // Pop case constant, jump on match: OpSwitchCase <label>
	OpSwitchCaseRange      Opcode = 0x88 // Pop range bounds, jump on containment: OpSwitchCaseRange <label>
	OpSwitchOnFloat        Opcode = 0x89 // Compare switch value to immediate float: <f> <label>
	OpSwitchOnString       Opcode = 0x8A // Compare switch value to immediate string: <str> <label>
	OpReturn               Opcode = 0x8B // Pop return value, leave the proc
	OpThrow                Opcode = 0x8C // Pop exception value, unwind to the catch target
	OpTry                  Opcode = 0x8D // Open a try region with a value-binding catch: OpTry <label>
	OpTryNoValue           Opcode = 0x8E // Open a try region, catch binds nothing: OpTryNoValue <label>
	OpEndTry               Opcode = 0x8F // Close the innermost try region
	OpSpawn                Opcode = 0x90 // Pop delay, schedule the body at label: OpSpawn <label>
	OpSleep                Opcode = 0x91 // Pop delay, suspend the proc

	// ========================================================================
	// Calls and objects (0xA0-0xAF)
	// ========================================================================

	OpCall            Opcode = 0xA0 // Call referenced proc: OpCall <ref> <argc>
	OpCallStatement   Opcode = 0xA1 // Call, discarding the result: OpCallStatement <ref> <argc>
	OpDereferenceCall Opcode = 0xA2 // Pop object, call named proc on it: OpDereferenceCall <str> <argc>
	OpCreateObject    Opcode = 0xA3 // Pop type and args, push new instance: OpCreateObject <argc>
	OpDeleteObject    Opcode = 0xA4 // Pop object, delete it

	// ========================================================================
	// Built-ins (0xB0-0xCF)
	// ========================================================================

	OpSin            Opcode = 0xB0
	OpCos            Opcode = 0xB1
	OpTan            Opcode = 0xB2
	OpArcSin         Opcode = 0xB3
	OpArcCos         Opcode = 0xB4
	OpArcTan         Opcode = 0xB5
	OpArcTan2        Opcode = 0xB6
	OpSqrt           Opcode = 0xB7
	OpLog            Opcode = 0xB8
	OpLogE           Opcode = 0xB9
	OpRound          Opcode = 0xBA
	OpProb           Opcode = 0xBB // Pop percentage, push random success
	OpRoll           Opcode = 0xBC // Pop dice expression, push roll
	OpPick           Opcode = 0xBD // Pop list, push random element
	OpPickWeighted   Opcode = 0xBE // Pop N value/weight pairs: OpPickWeighted <n>
	OpPickUnweighted Opcode = 0xBF // Pop N values: OpPickUnweighted <n>
	OpRgb            Opcode = 0xC0 // Pop components, push color string
	OpLocate         Opcode = 0xC1 // Pop type and container, push first match
	OpLocateCoord    Opcode = 0xC2 // Pop x/y/z, push turf
	OpGetStep        Opcode = 0xC3 // Pop ref and direction, push step target
	OpGetDir         Opcode = 0xC4 // Pop two atoms, push direction
	OpInput          Opcode = 0xC5 // Prompt a client for input
	OpOutput         Opcode = 0xC6 // Pop receiver and value, send output
	OpOutputControl  Opcode = 0xC7 // Pop control id and value, update client UI
	OpBrowse         Opcode = 0xC8 // Pop client, body and options, open a browser window
	OpBrowseResource Opcode = 0xC9 // Pop client, resource and file name, preload it
	OpLink           Opcode = 0xCA // Pop client and url, navigate

	// ========================================================================
	// Debug (0xF0-0xFF)
	// ========================================================================

	OpDebugSource        Opcode = 0xF0 // Mark the current source file: OpDebugSource <str>
	OpDebuggerBreakpoint Opcode = 0xF1 // Pause in an attached debugger
)

// ArgKind classifies a typed instruction argument.
type ArgKind uint8

const (
	ArgKindInt ArgKind = iota + 1
	ArgKindFloat
	ArgKindString   // string-table index
	ArgKindResource // resource-table index
	ArgKindType     // type id
	ArgKindRef      // reference descriptor
	ArgKindLabel    // jump-target label name
	ArgKindListSize // element or argument count
)

// String returns a short lowercase name for the kind.
func (k ArgKind) String() string {
	switch k {
	case ArgKindInt:
		return "int"
	case ArgKindFloat:
		return "float"
	case ArgKindString:
		return "string"
	case ArgKindResource:
		return "resource"
	case ArgKindType:
		return "type"
	case ArgKindRef:
		return "ref"
	case ArgKindLabel:
		return "label"
	case ArgKindListSize:
		return "listsize"
	default:
		return fmt.Sprintf("ArgKind(%d)", uint8(k))
	}
}

// OpcodeInfo provides static metadata about an opcode.
type OpcodeInfo struct {
	Name        string    // Human-readable name
	SplitsBlock bool      // True when the opcode must end a basic block
	StackDelta  int       // Net stack effect; see VarEffect
	VarEffect   bool      // True when the effect depends on an argument count
	Args        []ArgKind // Fixed argument schema
	Variadic    []ArgKind // Repeated argument unit following Args, if any
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack pushes
	OpPushNull:           {Name: "PUSH_NULL", StackDelta: 1},
	OpPushFloat:          {Name: "PUSH_FLOAT", StackDelta: 1, Args: []ArgKind{ArgKindFloat}},
	OpPushString:         {Name: "PUSH_STRING", StackDelta: 1, Args: []ArgKind{ArgKindString}},
	OpPushResource:       {Name: "PUSH_RESOURCE", StackDelta: 1, Args: []ArgKind{ArgKindResource}},
	OpPushType:           {Name: "PUSH_TYPE", StackDelta: 1, Args: []ArgKind{ArgKindType}},
	OpPushProc:           {Name: "PUSH_PROC", StackDelta: 1, Args: []ArgKind{ArgKindInt}},
	OpPushGlobalVars:     {Name: "PUSH_GLOBAL_VARS", StackDelta: 1},
	OpPushReferenceValue: {Name: "PUSH_REF_VALUE", StackDelta: 1, Args: []ArgKind{ArgKindRef}},
	OpPop:                {Name: "POP", StackDelta: -1},
	OpPopReference:       {Name: "POP_REF", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpSwap:               {Name: "SWAP", StackDelta: 0},

	// Fused constant runs: effect is +N (or +2N for pairs), from the count arg
	OpPushNFloats:         {Name: "PUSH_N_FLOATS", VarEffect: true, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindFloat}},
	OpPushNStrings:        {Name: "PUSH_N_STRINGS", VarEffect: true, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindString}},
	OpPushNResources:      {Name: "PUSH_N_RESOURCES", VarEffect: true, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindResource}},
	OpPushNRefs:           {Name: "PUSH_N_REFS", VarEffect: true, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindRef}},
	OpPushStringFloat:     {Name: "PUSH_STRING_FLOAT", StackDelta: 2, Args: []ArgKind{ArgKindString, ArgKindFloat}},
	OpPushNOfStringFloats: {Name: "PUSH_N_STRING_FLOATS", VarEffect: true, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindString, ArgKindFloat}},

	// Assignment
	OpAssign:            {Name: "ASSIGN", StackDelta: 0, Args: []ArgKind{ArgKindRef}},
	OpAssignPop:         {Name: "ASSIGN_POP", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpNullRef:           {Name: "NULL_REF", StackDelta: 0, Args: []ArgKind{ArgKindRef}},
	OpAppend:            {Name: "APPEND", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpRemove:            {Name: "REMOVE", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpCombine:           {Name: "COMBINE", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpMask:              {Name: "MASK", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpMultiplyReference: {Name: "MULTIPLY_REF", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpDivideReference:   {Name: "DIVIDE_REF", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpModulusReference:  {Name: "MODULUS_REF", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpBitXorReference:   {Name: "BIT_XOR_REF", StackDelta: -1, Args: []ArgKind{ArgKindRef}},
	OpIncrement:         {Name: "INCREMENT", StackDelta: 1, Args: []ArgKind{ArgKindRef}},
	OpDecrement:         {Name: "DECREMENT", StackDelta: 1, Args: []ArgKind{ArgKindRef}},

	// Arithmetic and bitwise
	OpAdd:            {Name: "ADD", StackDelta: -1},
	OpSubtract:       {Name: "SUBTRACT", StackDelta: -1},
	OpMultiply:       {Name: "MULTIPLY", StackDelta: -1},
	OpDivide:         {Name: "DIVIDE", StackDelta: -1},
	OpModulus:        {Name: "MODULUS", StackDelta: -1},
	OpModulusModulus: {Name: "MODULUS_MODULUS", StackDelta: -1},
	OpPower:          {Name: "POWER", StackDelta: -1},
	OpNegate:         {Name: "NEGATE", StackDelta: 0},
	OpAbs:            {Name: "ABS", StackDelta: 0},
	OpBitAnd:         {Name: "BIT_AND", StackDelta: -1},
	OpBitOr:          {Name: "BIT_OR", StackDelta: -1},
	OpBitXor:         {Name: "BIT_XOR", StackDelta: -1},
	OpBitNot:         {Name: "BIT_NOT", StackDelta: 0},
	OpBitShiftLeft:   {Name: "BIT_SHIFT_LEFT", StackDelta: -1},
	OpBitShiftRight:  {Name: "BIT_SHIFT_RIGHT", StackDelta: -1},

	// Comparison and type tests
	OpCompareEquals:             {Name: "COMPARE_EQ", StackDelta: -1},
	OpCompareNotEquals:          {Name: "COMPARE_NE", StackDelta: -1},
	OpCompareLessThan:           {Name: "COMPARE_LT", StackDelta: -1},
	OpCompareGreaterThan:        {Name: "COMPARE_GT", StackDelta: -1},
	OpCompareLessThanOrEqual:    {Name: "COMPARE_LE", StackDelta: -1},
	OpCompareGreaterThanOrEqual: {Name: "COMPARE_GE", StackDelta: -1},
	OpCompareEquivalent:         {Name: "COMPARE_EQUIV", StackDelta: -1},
	OpCompareNotEquivalent:      {Name: "COMPARE_NOT_EQUIV", StackDelta: -1},
	OpIsNull:                    {Name: "IS_NULL", StackDelta: 0},
	OpIsInList:                  {Name: "IS_IN_LIST", StackDelta: -1},
	OpIsInRange:                 {Name: "IS_IN_RANGE", StackDelta: -2},
	OpIsType:                    {Name: "IS_TYPE", StackDelta: -1},
	OpIsTypeDirect:              {Name: "IS_TYPE_DIRECT", StackDelta: 0, Args: []ArgKind{ArgKindType}},
	OpIsSaved:                   {Name: "IS_SAVED", StackDelta: 0},

	// Boolean
	OpBooleanNot: {Name: "BOOLEAN_NOT", StackDelta: 0},
	OpBooleanAnd: {Name: "BOOLEAN_AND", SplitsBlock: true, StackDelta: -1, Args: []ArgKind{ArgKindLabel}},
	OpBooleanOr:  {Name: "BOOLEAN_OR", SplitsBlock: true, StackDelta: -1, Args: []ArgKind{ArgKindLabel}},

	// Strings
	OpFormatString: {Name: "FORMAT_STRING", VarEffect: true, Args: []ArgKind{ArgKindString, ArgKindListSize}},
	OpLength:       {Name: "LENGTH", StackDelta: 0},

	// Lists
	OpCreateList:            {Name: "CREATE_LIST", VarEffect: true, Args: []ArgKind{ArgKindListSize}},
	OpCreateAssociativeList: {Name: "CREATE_ASSOC_LIST", VarEffect: true, Args: []ArgKind{ArgKindListSize}},
	OpCreateListNFloats:     {Name: "CREATE_LIST_N_FLOATS", StackDelta: 1, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindFloat}},
	OpCreateListNStrings:    {Name: "CREATE_LIST_N_STRINGS", StackDelta: 1, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindString}},
	OpCreateListNResources:  {Name: "CREATE_LIST_N_RESOURCES", StackDelta: 1, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindResource}},
	OpCreateListNRefs:       {Name: "CREATE_LIST_N_REFS", StackDelta: 1, Args: []ArgKind{ArgKindListSize}, Variadic: []ArgKind{ArgKindRef}},
	OpDereferenceIndex:      {Name: "DEREF_INDEX", StackDelta: -1},
	OpAppendNoPush:          {Name: "APPEND_NO_PUSH", StackDelta: -2},

	// Enumerators
	OpCreateListEnumerator:         {Name: "CREATE_LIST_ENUMERATOR", StackDelta: -1},
	OpCreateFilteredListEnumerator: {Name: "CREATE_FILTERED_ENUMERATOR", StackDelta: -1, Args: []ArgKind{ArgKindType}},
	OpCreateTypeEnumerator:         {Name: "CREATE_TYPE_ENUMERATOR", StackDelta: 0, Args: []ArgKind{ArgKindType}},
	OpCreateRangeEnumerator:        {Name: "CREATE_RANGE_ENUMERATOR", StackDelta: -3},
	OpEnumerate:                    {Name: "ENUMERATE", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindRef, ArgKindLabel}},
	OpEnumerateNoAssign:            {Name: "ENUMERATE_NO_ASSIGN", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindLabel}},
	OpDestroyEnumerator:            {Name: "DESTROY_ENUMERATOR", StackDelta: 0},

	// Field dereference
	OpDereferenceField:           {Name: "DEREF_FIELD", StackDelta: 0, Args: []ArgKind{ArgKindString}},
	OpPushRefAndDereferenceField: {Name: "PUSH_REF_DEREF_FIELD", StackDelta: 1, Args: []ArgKind{ArgKindRef, ArgKindString}},
	OpInitial:                    {Name: "INITIAL", StackDelta: 0},

	// Control flow
	OpJump:                 {Name: "JUMP", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindLabel}},
	OpJumpIfFalse:          {Name: "JUMP_IF_FALSE", SplitsBlock: true, StackDelta: -1, Args: []ArgKind{ArgKindLabel}},
	OpJumpIfTrue:           {Name: "JUMP_IF_TRUE", SplitsBlock: true, StackDelta: -1, Args: []ArgKind{ArgKindLabel}},
	OpJumpIfNull:           {Name: "JUMP_IF_NULL", SplitsBlock: true, StackDelta: -1, Args: []ArgKind{ArgKindLabel}},
	OpJumpIfNullNoPop:      {Name: "JUMP_IF_NULL_NO_POP", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindLabel}},
	OpJumpIfFalseReference: {Name: "JUMP_IF_FALSE_REF", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindRef, ArgKindLabel}},
	OpJumpIfTrueReference:  {Name: "JUMP_IF_TRUE_REF", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindRef, ArgKindLabel}},
	OpSwitchCase:           {Name: "SWITCH_CASE", SplitsBlock: true, StackDelta: -1, Args: []ArgKind{ArgKindLabel}},
	OpSwitchCaseRange:      {Name: "SWITCH_CASE_RANGE", SplitsBlock: true, StackDelta: -2, Args: []ArgKind{ArgKindLabel}},
	OpSwitchOnFloat:        {Name: "SWITCH_ON_FLOAT", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindFloat, ArgKindLabel}},
	OpSwitchOnString:       {Name: "SWITCH_ON_STRING", SplitsBlock: true, StackDelta: 0, Args: []ArgKind{ArgKindString, ArgKindLabel}},
	OpReturn:               {Name: "RETURN", SplitsBlock: true, StackDelta: -1},
	OpThrow:                {Name: "THROW", SplitsBlock: true, StackDelta: -1},
	OpTry:                  {Name: "TRY", StackDelta: 0, Args: []ArgKind{ArgKindLabel}},
	OpTryNoValue:           {Name: "TRY_NO_VALUE", StackDelta: 0, Args: []ArgKind{ArgKindLabel}},
	OpEndTry:               {Name: "END_TRY", StackDelta: 0},
	OpSpawn:                {Name: "SPAWN", SplitsBlock: true, StackDelta: -1, Args: []ArgKind{ArgKindLabel}},
	OpSleep:                {Name: "SLEEP", StackDelta: -1},

	// Calls and objects
	OpCall:            {Name: "CALL", SplitsBlock: true, VarEffect: true, Args: []ArgKind{ArgKindRef, ArgKindListSize}},
	OpCallStatement:   {Name: "CALL_STATEMENT", SplitsBlock: true, VarEffect: true, Args: []ArgKind{ArgKindRef, ArgKindListSize}},
	OpDereferenceCall: {Name: "DEREF_CALL", SplitsBlock: true, VarEffect: true, Args: []ArgKind{ArgKindString, ArgKindListSize}},
	OpCreateObject:    {Name: "CREATE_OBJECT", VarEffect: true, Args: []ArgKind{ArgKindListSize}},
	OpDeleteObject:    {Name: "DELETE_OBJECT", StackDelta: -1},

	// Built-ins
	OpSin:            {Name: "SIN", StackDelta: 0},
	OpCos:            {Name: "COS", StackDelta: 0},
	OpTan:            {Name: "TAN", StackDelta: 0},
	OpArcSin:         {Name: "ARCSIN", StackDelta: 0},
	OpArcCos:         {Name: "ARCCOS", StackDelta: 0},
	OpArcTan:         {Name: "ARCTAN", StackDelta: 0},
	OpArcTan2:        {Name: "ARCTAN2", StackDelta: -1},
	OpSqrt:           {Name: "SQRT", StackDelta: 0},
	OpLog:            {Name: "LOG", StackDelta: -1},
	OpLogE:           {Name: "LOG_E", StackDelta: 0},
	OpRound:          {Name: "ROUND", StackDelta: 0},
	OpProb:           {Name: "PROB", StackDelta: 0},
	OpRoll:           {Name: "ROLL", StackDelta: 0},
	OpPick:           {Name: "PICK", StackDelta: 0},
	OpPickWeighted:   {Name: "PICK_WEIGHTED", VarEffect: true, Args: []ArgKind{ArgKindListSize}},
	OpPickUnweighted: {Name: "PICK_UNWEIGHTED", VarEffect: true, Args: []ArgKind{ArgKindListSize}},
	OpRgb:            {Name: "RGB", StackDelta: -2},
	OpLocate:         {Name: "LOCATE", StackDelta: -1},
	OpLocateCoord:    {Name: "LOCATE_COORD", StackDelta: -2},
	OpGetStep:        {Name: "GET_STEP", StackDelta: -1},
	OpGetDir:         {Name: "GET_DIR", StackDelta: -1},
	OpInput:          {Name: "INPUT", StackDelta: 0},
	OpOutput:         {Name: "OUTPUT", StackDelta: -2},
	OpOutputControl:  {Name: "OUTPUT_CONTROL", StackDelta: -2},
	OpBrowse:         {Name: "BROWSE", StackDelta: -3},
	OpBrowseResource: {Name: "BROWSE_RESOURCE", StackDelta: -3},
	OpLink:           {Name: "LINK", StackDelta: -2},

	// Debug
	OpDebugSource:        {Name: "DEBUG_SOURCE", StackDelta: 0, Args: []ArgKind{ArgKindString}},
	OpDebuggerBreakpoint: {Name: "DEBUGGER_BREAKPOINT", StackDelta: 0},
}

// Metadata returns the static metadata for an opcode. The table is total
// over the enumeration; querying an unknown opcode is a programmer error.
func Metadata(op Opcode) OpcodeInfo {
	info, ok := opcodeInfoTable[op]
	if !ok {
		panic(fmt.Sprintf("bytecode: no metadata for opcode 0x%02X", byte(op)))
	}
	return info
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// SplitsBlock reports whether the opcode must end a basic block.
func (op Opcode) SplitsBlock() bool {
	return Metadata(op).SplitsBlock
}

// IsJump reports whether the opcode transfers control through a label.
func (op Opcode) IsJump() bool {
	for _, k := range Metadata(op).Args {
		if k == ArgKindLabel {
			return true
		}
	}
	return false
}

// IsReturn reports whether the opcode leaves the current proc.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpThrow
}

// AllOpcodes returns every defined opcode. Useful for testing that the
// metadata table stays total.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
