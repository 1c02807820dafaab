// Package bytecode implements Stratum's chunk format: the opcode set,
// fixed-width instruction encoding, constant pool, and line table of spec
// §4.1 and §6.1.
//
// It generalizes the teacher's runtime.Chunk (int-slice code, dedup'd
// constant pool, parallel line-info slice) from a variable-width,
// interpreter-only encoding to the spec's fixed-width, disassembler- and
// JIT-friendly one: every operand is a known-width big-endian field instead
// of a bare int, so internal/jit and a bytecode dump tool can decode an
// instruction without consulting the opcode table twice.
package bytecode

// OpCode names one bytecode instruction (§4.1.2 families, generalized from
// the teacher's OP_* int enum).
type OpCode uint8

const (
	// Stack & constants
	OpConst OpCode = iota // u16 const-index
	OpPop
	OpDup
	OpSwap
	OpPopBelow // u8 count: removes n slots underneath the top, preserving it
	OpNull
	OpTrue
	OpFalse

	// Locals & globals
	OpLoadLocal  // u16 slot
	OpStoreLocal // u16 slot
	OpLoadGlobal // u16 const-index (name)
	OpStoreGlobal
	OpLoadUpvalue  // u16 upvalue-index
	OpStoreUpvalue // u16 upvalue-index

	// Arithmetic & comparison
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpNot
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr

	// Null handling (§4.2.2)
	OpIsNull        // pops one, pushes Bool(is-null)
	OpJumpIfNull    // i16 offset; peeks (not pops) the top, branches if null
	OpJumpIfNotNull // i16 offset; peeks (not pops) the top, branches if non-null
	OpNullCoalesce  // pops two (a, b eval order), pushes a if non-null else b

	// Containers
	OpMakeList  // u16 element count
	OpMakeMap   // u16 pair count
	OpMakeSet   // u16 element count
	OpGetIndex
	OpSetIndex
	OpGetProp  // u16 const-index (name)
	OpSetProp  // u16 const-index (name)
	OpMakeRange // u8 flags: bit0 inclusive

	// Structs & enums
	OpMakeStruct     // u16 const-index (type name), u8 field count
	OpMakeEnumVariant // u16 const-index (type name), u16 const-index (variant name), u8 hasPayload

	// Control flow
	OpJump         // i16 offset
	OpJumpIfFalse  // i16 offset
	OpJumpIfTrue   // i16 offset
	OpLoop         // i16 offset (backward)

	// Calls & closures
	OpCall        // u8 argc
	OpInvoke      // u16 const-index (method name), u8 argc
	OpReturn
	OpClosure     // u16 const-index (function), u8 upvalue count, then per-upvalue (u8 isLocal, u16 index)
	OpCloseUpvalue

	// Iteration
	OpIterInit // begins iterating TOS (Range/List/Map/Set/String)
	OpIterNext // i16 offset to jump to when exhausted

	// Exceptions
	OpPushHandler // i16 catch offset
	OpPopHandler
	OpThrow

	// Concurrency
	OpAwait
	OpYield

	// Host bridge
	OpCallHost // u16 const-index (namespace.function name), u8 argc
	OpGetModule // u16 const-index (module name)

	// Fast paths carried from the teacher's peephole optimizer, kept as
	// non-spec-mandated interpreter accelerants (§9: "a conforming
	// implementation MAY add instructions ... so long as observable
	// semantics are unchanged").
	OpIncLocal // u16 slot
	OpDecLocal // u16 slot
	OpLoadConst0
	OpLoadConst1

	opCodeCount
)

var names = [...]string{
	"CONST", "POP", "DUP", "SWAP", "POP_BELOW", "NULL", "TRUE", "FALSE",
	"LOAD_LOCAL", "STORE_LOCAL", "LOAD_GLOBAL", "STORE_GLOBAL",
	"LOAD_UPVALUE", "STORE_UPVALUE",
	"ADD", "SUB", "MUL", "DIV", "MOD", "POW", "NEG", "NOT",
	"EQ", "NE", "LT", "LE", "GT", "GE", "AND", "OR",
	"IS_NULL", "JUMP_IF_NULL", "JUMP_IF_NOT_NULL", "NULL_COALESCE",
	"MAKE_LIST", "MAKE_MAP", "MAKE_SET", "GET_INDEX", "SET_INDEX",
	"GET_PROP", "SET_PROP", "MAKE_RANGE",
	"MAKE_STRUCT", "MAKE_ENUM_VARIANT",
	"JUMP", "JUMP_IF_FALSE", "JUMP_IF_TRUE", "LOOP",
	"CALL", "INVOKE", "RETURN", "CLOSURE", "CLOSE_UPVALUE",
	"ITER_INIT", "ITER_NEXT",
	"PUSH_HANDLER", "POP_HANDLER", "THROW",
	"AWAIT", "YIELD",
	"CALL_HOST", "GET_MODULE",
	"INC_LOCAL", "DEC_LOCAL", "LOAD_CONST_0", "LOAD_CONST_1",
}

func (op OpCode) String() string {
	if int(op) < len(names) {
		return names[op]
	}
	return "UNKNOWN"
}

// operandWidth reports the fixed byte width of each opcode's operand bytes,
// per §6.1's encoding table. Variable-shape instructions (OpClosure) are
// handled specially by the decoder, not through this table.
func (op OpCode) operandWidth() int {
	switch op {
	case OpConst, OpLoadLocal, OpStoreLocal, OpLoadGlobal, OpStoreGlobal,
		OpLoadUpvalue, OpStoreUpvalue, OpMakeList, OpMakeMap, OpMakeSet,
		OpGetProp, OpSetProp, OpIncLocal, OpDecLocal:
		return 2
	case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpLoop, OpIterNext, OpPushHandler,
		OpJumpIfNull, OpJumpIfNotNull:
		return 2
	case OpCall, OpMakeRange, OpPopBelow:
		return 1
	case OpInvoke, OpCallHost:
		return 3 // u16 + u8
	case OpMakeStruct:
		return 3 // u16 + u8
	case OpMakeEnumVariant:
		return 5 // u16 + u16 + u8
	case OpGetModule:
		return 2
	default:
		return 0
	}
}
