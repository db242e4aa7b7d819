package equation

import (
	"errors"
	"fmt"

	"github.com/netdaq-go/netdaq/wire"
)

// ErrStackUnderflow is returned when an opcode, or an Append, would
// need more values than are available on the stack.
var ErrStackUnderflow = errors.New("equation: stack underflow")

// ErrNoChannelReference is returned by Validate when the built
// expression never reads a channel, which the firmware rejects.
var ErrNoChannelReference = errors.New("equation: no channel reference")

// ErrNotTerminated is returned by Validate when End has not been
// called.
var ErrNotTerminated = errors.New("equation: not terminated")

// ErrPendingInput is returned by Validate when the Builder still
// declares a nonzero input stack depth: only a Builder built with
// NewBuilder (zero input depth) can be a complete, standalone program.
var ErrPendingInput = errors.New("equation: equation still expects input on the stack")

// ErrBadEndDepth is returned by End when the current stack depth is
// not exactly 1.
var ErrBadEndDepth = errors.New("equation: stack depth must be 1 at end")

// ErrAppendAfterEnd is returned by any append/push once End has
// already been called.
var ErrAppendAfterEnd = errors.New("equation: cannot append after end")

// Builder assembles a stream of Opcode instructions, tracking the
// running and maximum stack depth as each op is appended. Grounded on
// original_source/lib/config/equation.py's DAQEquation, whose
// _push_op/append/end/validate methods this mirrors one for one,
// including the inputStackDepth bookkeeping that lets a partially
// built subtree be composed into a parent program before the parent's
// own depth at that point is known.
type Builder struct {
	ops             [][]byte
	hasEnd          bool
	hasChannel      bool
	stackDepth      int
	maxStackDepth   int
	inputStackDepth int
	err             error
}

// NewBuilder returns an empty Builder for a complete, standalone
// equation (input stack depth 0).
func NewBuilder() *Builder {
	return &Builder{}
}

// NewSubtreeBuilder returns an empty Builder that assumes inputDepth
// values are already present on the stack when it runs — used by the
// compiler to build an operand's bytecode on its own before it knows
// how deep the surrounding expression's stack will be at splice time.
func NewSubtreeBuilder(inputDepth int) *Builder {
	return &Builder{inputStackDepth: inputDepth}
}

// StackDepth reports the current (not yet terminated) stack depth.
func (b *Builder) StackDepth() int { return b.stackDepth }

// MaxStackDepth reports the highest stack depth reached so far,
// relative to this Builder's own declared input depth. The compiler's
// commutative-operand reorder picks whichever operand order yields the
// lower combined max depth once grafted onto the parent (see Append).
func (b *Builder) MaxStackDepth() int { return b.maxStackDepth }

// Err returns the first error encountered while building, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) pushOp(op Opcode, immediate []byte) *Builder {
	if b.err != nil {
		return b
	}
	if b.hasEnd {
		b.err = ErrAppendAfterEnd
		return b
	}
	n := table[op]
	effective := b.stackDepth + b.inputStackDepth
	if effective < n.pops {
		b.err = fmt.Errorf("%w: %s needs %d element(s) on the stack, have %d", ErrStackUnderflow, op, n.pops, effective)
		return b
	}
	encoded := make([]byte, 0, 1+len(immediate))
	encoded = append(encoded, byte(op))
	encoded = append(encoded, immediate...)
	b.ops = append(b.ops, encoded)

	b.stackDepth += n.pushes - n.pops
	if b.stackDepth > b.maxStackDepth {
		b.maxStackDepth = b.stackDepth
	}
	return b
}

// PushChannel pushes the current value of the channel at the given
// index (including computed channels defined earlier in the
// configuration).
func (b *Builder) PushChannel(index uint16) *Builder {
	b.hasChannel = true
	return b.pushOp(PushChannel, wire.NewEncoder(nil).Uint16(index).Bytes())
}

// PushFloat pushes a literal float32 constant.
func (b *Builder) PushFloat(v float32) *Builder {
	return b.pushOp(PushFloat, wire.NewEncoder(nil).Float32(v).Bytes())
}

// PushDouble pushes a literal float64 constant.
func (b *Builder) PushDouble(v float64) *Builder {
	return b.pushOp(PushDouble, wire.NewEncoder(nil).Float64(v).Bytes())
}

func (b *Builder) UnaryMinus() *Builder { return b.pushOp(UnaryMinus, nil) }
func (b *Builder) Subtract() *Builder   { return b.pushOp(Subtract, nil) }
func (b *Builder) Add() *Builder        { return b.pushOp(Add, nil) }
func (b *Builder) Multiply() *Builder   { return b.pushOp(Multiply, nil) }
func (b *Builder) Divide() *Builder     { return b.pushOp(Divide, nil) }
func (b *Builder) Power() *Builder      { return b.pushOp(Power, nil) }
func (b *Builder) Exp() *Builder        { return b.pushOp(Exp, nil) }
func (b *Builder) Ln() *Builder         { return b.pushOp(Ln, nil) }
func (b *Builder) Log() *Builder        { return b.pushOp(Log, nil) }
func (b *Builder) Abs() *Builder        { return b.pushOp(Abs, nil) }
func (b *Builder) Int() *Builder        { return b.pushOp(Int, nil) }
func (b *Builder) Sqrt() *Builder       { return b.pushOp(Sqrt, nil) }

// Append splices other's instruction stream onto b. other's declared
// input stack depth must not exceed b's current stack depth; other's
// max stack depth is added to b's current depth to fold into b's own
// max, since other runs with b's stack already underneath it.
func (b *Builder) Append(other *Builder) *Builder {
	if b.err != nil {
		return b
	}
	if b.hasEnd {
		b.err = ErrAppendAfterEnd
		return b
	}
	if other.err != nil {
		b.err = other.err
		return b
	}
	if b.stackDepth < other.inputStackDepth {
		b.err = fmt.Errorf("%w: append expects >= %d element(s), stack has %d", ErrStackUnderflow, other.inputStackDepth, b.stackDepth)
		return b
	}

	b.ops = append(b.ops, other.ops...)
	b.hasChannel = b.hasChannel || other.hasChannel
	b.hasEnd = other.hasEnd

	combined := other.maxStackDepth + b.stackDepth
	if combined > b.maxStackDepth {
		b.maxStackDepth = combined
	}
	b.stackDepth += other.stackDepth
	return b
}

// End appends the terminating END opcode. The current stack depth
// must be exactly 1.
func (b *Builder) End() *Builder {
	if b.err != nil {
		return b
	}
	if b.hasEnd {
		b.err = ErrAppendAfterEnd
		return b
	}
	if b.stackDepth != 1 {
		b.err = fmt.Errorf("%w: got %d", ErrBadEndDepth, b.stackDepth)
		return b
	}
	b.pushOp(End, nil)
	b.hasEnd = true
	return b
}

// Validate reports whether the built expression is a complete,
// encodable program: terminated, referencing at least one channel, and
// not still expecting input from an enclosing stack.
func (b *Builder) Validate() error {
	if b.err != nil {
		return b.err
	}
	if !b.hasEnd {
		return ErrNotTerminated
	}
	if !b.hasChannel {
		return ErrNoChannelReference
	}
	if b.inputStackDepth != 0 {
		return ErrPendingInput
	}
	return nil
}

// Encode validates the program and returns its assembled opcode
// stream.
func (b *Builder) Encode() ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	var out []byte
	for _, op := range b.ops {
		out = append(out, op...)
	}
	return out, nil
}
