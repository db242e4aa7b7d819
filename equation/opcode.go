// Package equation implements the derived-channel stack machine: the
// opcode table the firmware executes and a Builder that assembles valid
// opcode streams for it, tracking the stack depth invariants from §4.4
// as operations are appended.
package equation

import "fmt"

// Opcode identifies one stack-machine instruction. Values and stack
// effects are grounded on original_source/lib/config/equation.py's
// DAQEquationOpcode table.
type Opcode byte

const (
	End         Opcode = 0x00
	PushChannel Opcode = 0x01
	PushFloat   Opcode = 0x02
	PushDouble  Opcode = 0x03
	UnaryMinus  Opcode = 0x04
	Subtract    Opcode = 0x05
	Add         Opcode = 0x06
	Multiply    Opcode = 0x07
	Divide      Opcode = 0x08
	Power       Opcode = 0x09
	Exp         Opcode = 0x0A
	Ln          Opcode = 0x0B
	Log         Opcode = 0x0C
	Abs         Opcode = 0x0D
	Int         Opcode = 0x0E
	Sqrt        Opcode = 0x0F
)

type info struct {
	name      string
	pops      int
	pushes    int
	immediate int // width in bytes of the opcode's immediate operand, 0 if none
}

var table = map[Opcode]info{
	End:         {"END", 1, 0, 0},
	PushChannel: {"PUSH_CHANNEL", 0, 1, 2},
	PushFloat:   {"PUSH_FLOAT", 0, 1, 4},
	PushDouble:  {"PUSH_DOUBLE", 0, 1, 8},
	UnaryMinus:  {"UNARY_MINUS", 1, 1, 0},
	Subtract:    {"SUBTRACT", 2, 1, 0},
	Add:         {"ADD", 2, 1, 0},
	Multiply:    {"MULTIPLY", 2, 1, 0},
	Divide:      {"DIVIDE", 2, 1, 0},
	Power:       {"POWER", 2, 1, 0},
	Exp:         {"EXP", 1, 1, 0},
	Ln:          {"LN", 1, 1, 0},
	Log:         {"LOG", 1, 1, 0},
	Abs:         {"ABS", 1, 1, 0},
	Int:         {"INT", 1, 1, 0},
	Sqrt:        {"SQRT", 1, 1, 0},
}

// Pops reports how many stack values op consumes.
func (op Opcode) Pops() int { return table[op].pops }

// Pushes reports how many stack values op produces.
func (op Opcode) Pushes() int { return table[op].pushes }

// Immediate reports the width in bytes of op's immediate operand, or 0
// if op takes none.
func (op Opcode) Immediate() int { return table[op].immediate }

// Commutative reports whether op's two operands may be swapped without
// changing the result. Only ADD and MULTIPLY qualify, the same two
// operators whose operands the compiler's emitter may reorder (§4.5);
// the emitter decides that from the operator token's text and does not
// call this method.
func (op Opcode) Commutative() bool {
	return op == Add || op == Multiply
}

func (op Opcode) String() string {
	if e, ok := table[op]; ok {
		return e.name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}
