package bytecode

import (
	"encoding/binary"
	"fmt"

	"stratum/internal/value"
)

// Chunk is a function body's compiled bytecode plus its constant pool and
// line table (§4.1.1), generalizing the teacher's Chunk{Code, Consts,
// lineInfo} from a variable-width int-code array to a fixed-width byte
// array addressed at §6.1.
type Chunk struct {
	Source string // originating file/REPL-entry name, for coverage/LCOV SF:

	code []byte

	consts   []value.Value
	constMap map[string]int // dedup key -> index, mirrors the teacher's addConst

	// lines[i] is the source line for the instruction starting at code[i]'s
	// opcode byte. Sparse: only opcode-start offsets are populated; it is
	// consulted via GetLine which walks backward to the nearest opcode
	// boundary, same approach as the teacher's per-instruction lineInfo.
	lines map[int]int
	lastLine int
}

func NewChunk(source string) *Chunk {
	return &Chunk{Source: source, constMap: map[string]int{}, lines: map[int]int{}}
}

// Code returns the raw instruction stream. Callers (VM, disassembler, JIT)
// must treat it as read-only.
func (c *Chunk) Code() []byte { return c.code }

func (c *Chunk) Len() int { return len(c.code) }

// Emit appends an opcode with no operand and records its source line (§6.1:
// "every instruction starts with a one-byte opcode").
func (c *Chunk) Emit(op OpCode, line int) int {
	pos := len(c.code)
	c.code = append(c.code, byte(op))
	c.lines[pos] = line
	c.lastLine = line
	return pos
}

func (c *Chunk) EmitU8(op OpCode, operand uint8, line int) int {
	pos := c.Emit(op, line)
	c.code = append(c.code, operand)
	return pos
}

func (c *Chunk) EmitU16(op OpCode, operand uint16, line int) int {
	pos := c.Emit(op, line)
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], operand)
	c.code = append(c.code, buf[:]...)
	return pos
}

// AppendRawU8/AppendRawU16 append continuation bytes belonging to the
// instruction most recently started by Emit/EmitU8/EmitU16, for variable-
// shape encodings (OpClosure's trailing upvalue descriptors) that don't fit
// the single-fixed-operand shape the other Emit* helpers assume.
func (c *Chunk) AppendRawU8(b uint8) {
	c.code = append(c.code, b)
}

func (c *Chunk) AppendRawU16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	c.code = append(c.code, buf[:]...)
}

// EmitJump emits a placeholder i16 displacement and returns its byte offset
// so the caller can PatchJump once the target is known (§4.1.3 forward
// jumps).
func (c *Chunk) EmitJump(op OpCode, line int) int {
	c.Emit(op, line)
	operandAt := len(c.code)
	c.code = append(c.code, 0, 0)
	return operandAt
}

// PatchJump backfills a forward jump's i16 displacement, measured from the
// byte immediately after the two-byte operand (§6.1).
func (c *Chunk) PatchJump(operandAt int) error {
	disp := len(c.code) - (operandAt + 2)
	if disp < -32768 || disp > 32767 {
		return fmt.Errorf("jump displacement %d out of i16 range", disp)
	}
	binary.BigEndian.PutUint16(c.code[operandAt:operandAt+2], uint16(int16(disp)))
	return nil
}

// EmitLoop emits a backward jump (OpLoop) to a previously recorded offset.
func (c *Chunk) EmitLoop(target int, line int) error {
	c.Emit(OpLoop, line)
	operandAt := len(c.code)
	c.code = append(c.code, 0, 0)
	disp := target - (operandAt + 2)
	if disp < -32768 || disp > 32767 {
		return fmt.Errorf("loop displacement %d out of i16 range", disp)
	}
	binary.BigEndian.PutUint16(c.code[operandAt:operandAt+2], uint16(int16(disp)))
	return nil
}

// ReadU8/ReadU16/ReadI16 decode operands at ip, mirroring the VM's own
// fetch-decode step so the disassembler and JIT front end never duplicate
// the encoding rules in a second place.
func ReadU8(code []byte, ip int) uint8 { return code[ip] }

func ReadU16(code []byte, ip int) uint16 {
	return binary.BigEndian.Uint16(code[ip : ip+2])
}

func ReadI16(code []byte, ip int) int16 {
	return int16(binary.BigEndian.Uint16(code[ip : ip+2]))
}

// --- constant pool ----------------------------------------------------

// AddConst interns a constant value, deduplicating by its display string the
// way the teacher's addConst/getConstKey did, and returns its pool index.
func (c *Chunk) AddConst(v value.Value) uint16 {
	key := constKey(v)
	if idx, ok := c.constMap[key]; ok {
		return uint16(idx)
	}
	idx := len(c.consts)
	c.consts = append(c.consts, v)
	c.constMap[key] = idx
	return uint16(idx)
}

func constKey(v value.Value) string {
	return fmt.Sprintf("%s:%s", v.Type(), v.String())
}

func (c *Chunk) Const(idx uint16) value.Value {
	if int(idx) >= len(c.consts) {
		return value.NullValue
	}
	return c.consts[idx]
}

func (c *Chunk) Consts() []value.Value { return c.consts }

// --- line table ---------------------------------------------------------

// GetLine resolves the source line for the instruction at or immediately
// before ip, walking backward to the nearest recorded opcode boundary
// (§8 invariant 4: "line numbers are monotonically non-decreasing within a
// single straight-line run of instructions").
func (c *Chunk) GetLine(ip int) int {
	for i := ip; i >= 0; i-- {
		if l, ok := c.lines[i]; ok {
			return l
		}
	}
	return c.lastLine
}

// Instruction is one decoded opcode-boundary position, as reported by Walk.
type Instruction struct {
	Offset int
	Op     OpCode
	Line   int
}

// Walk visits every instruction boundary in order, the same traversal
// Disassemble performs, factored out so internal/coverage's
// FunctionCoverage.AnalyzeChunk doesn't duplicate the per-opcode size table.
func (c *Chunk) Walk(visit func(Instruction)) {
	ip := 0
	for ip < len(c.code) {
		op := OpCode(c.code[ip])
		visit(Instruction{Offset: ip, Op: op, Line: c.GetLine(ip)})
		if op == OpClosure {
			upvalCount := ReadU8(c.code, ip+3)
			ip += 4 + int(upvalCount)*3
			continue
		}
		ip += 1 + op.operandWidth()
	}
}

// Disassemble renders the chunk as a human-readable listing, grounded on the
// teacher's Pretty-printing conventions (outputingpritier.go) but scoped to
// bytecode rather than runtime values.
func (c *Chunk) Disassemble(name string) string {
	out := fmt.Sprintf("== %s ==\n", name)
	ip := 0
	for ip < len(c.code) {
		op := OpCode(c.code[ip])
		line := c.GetLine(ip)
		switch op {
		case OpConst, OpLoadLocal, OpStoreLocal, OpLoadGlobal, OpStoreGlobal,
			OpLoadUpvalue, OpStoreUpvalue, OpMakeList, OpMakeMap, OpMakeSet,
			OpGetProp, OpSetProp, OpIncLocal, OpDecLocal, OpGetModule:
			operand := ReadU16(c.code, ip+1)
			out += fmt.Sprintf("%04d  %4d  %-16s %d\n", ip, line, op, operand)
			ip += 3
		case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpLoop, OpIterNext, OpPushHandler,
			OpJumpIfNull, OpJumpIfNotNull:
			operand := ReadI16(c.code, ip+1)
			out += fmt.Sprintf("%04d  %4d  %-16s %+d -> %04d\n", ip, line, op, operand, ip+3+int(operand))
			ip += 3
		case OpCall, OpMakeRange, OpPopBelow:
			operand := ReadU8(c.code, ip+1)
			out += fmt.Sprintf("%04d  %4d  %-16s %d\n", ip, line, op, operand)
			ip += 2
		case OpInvoke, OpCallHost:
			nameIdx := ReadU16(c.code, ip+1)
			argc := ReadU8(c.code, ip+3)
			out += fmt.Sprintf("%04d  %4d  %-16s %s, argc=%d\n", ip, line, op, c.Const(nameIdx), argc)
			ip += 4
		case OpMakeStruct:
			nameIdx := ReadU16(c.code, ip+1)
			fieldCount := ReadU8(c.code, ip+3)
			out += fmt.Sprintf("%04d  %4d  %-16s %s, fields=%d\n", ip, line, op, c.Const(nameIdx), fieldCount)
			ip += 4
		case OpMakeEnumVariant:
			typeIdx := ReadU16(c.code, ip+1)
			variantIdx := ReadU16(c.code, ip+3)
			hasPayload := ReadU8(c.code, ip+5)
			out += fmt.Sprintf("%04d  %4d  %-16s %s.%s payload=%d\n", ip, line, op, c.Const(typeIdx), c.Const(variantIdx), hasPayload)
			ip += 6
		case OpClosure:
			fnIdx := ReadU16(c.code, ip+1)
			upvalCount := ReadU8(c.code, ip+3)
			out += fmt.Sprintf("%04d  %4d  %-16s %s, upvalues=%d\n", ip, line, op, c.Const(fnIdx), upvalCount)
			ip += 4 + int(upvalCount)*3
		default:
			out += fmt.Sprintf("%04d  %4d  %-16s\n", ip, line, op)
			ip++
		}
	}
	return out
}
