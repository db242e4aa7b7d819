package equation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderChannelPlusChannel(t *testing.T) {
	// "C1 + C2" -> PUSH_CHANNEL 1, PUSH_CHANNEL 2, ADD, END.
	b := NewBuilder()
	b.PushChannel(1).PushChannel(2).Add().End()
	require.NoError(t, b.Err())
	require.NoError(t, b.Validate())

	encoded, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x01, 0x01, 0x00, 0x02, 0x06, 0x00}, encoded)
}

func TestBuilderStackUnderflow(t *testing.T) {
	b := NewBuilder()
	b.Add() // nothing on the stack yet
	assert.ErrorIs(t, b.Err(), ErrStackUnderflow)
	assert.ErrorIs(t, b.Validate(), ErrStackUnderflow)
}

func TestBuilderRequiresChannelReference(t *testing.T) {
	// "1 + 2 * 3" folds to a bare constant with no channel reference.
	b := NewBuilder()
	b.PushFloat(7).End()
	require.NoError(t, b.Err())
	assert.ErrorIs(t, b.Validate(), ErrNoChannelReference)
}

func TestBuilderMustTerminate(t *testing.T) {
	b := NewBuilder()
	b.PushChannel(0)
	assert.ErrorIs(t, b.Validate(), ErrNotTerminated)
}

func TestBuilderEndRequiresDepthOne(t *testing.T) {
	b := NewBuilder()
	b.PushChannel(0).PushChannel(1) // depth 2, no combining op
	b.End()
	assert.ErrorIs(t, b.Err(), ErrBadEndDepth)
}

func TestBuilderNoOpAfterEnd(t *testing.T) {
	b := NewBuilder()
	b.PushChannel(0).End()
	b.PushFloat(1)
	assert.ErrorIs(t, b.Err(), ErrAppendAfterEnd)
}

func TestBuilderAppendComposesSubtrees(t *testing.T) {
	// "c5 + -3.5" built as two independently-assembled operand subtrees
	// spliced onto a parent, the way the compiler's emitter splices the
	// scratch builder it keeps for a commutative operator's operands.
	left := NewSubtreeBuilder(0)
	left.PushChannel(5)
	require.NoError(t, left.Err())

	right := NewSubtreeBuilder(0)
	right.PushFloat(-3.5)
	require.NoError(t, right.Err())

	parent := NewBuilder()
	parent.Append(left).Append(right).Add().End()
	require.NoError(t, parent.Err())
	require.NoError(t, parent.Validate())

	encoded, err := parent.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(PushChannel), encoded[0])
	assert.Equal(t, byte(End), encoded[len(encoded)-1])
}

func TestBuilderAppendRespectsInputStackDepth(t *testing.T) {
	// A subtree declaring it needs two values already on the stack
	// cannot be appended onto an empty parent.
	sub := NewSubtreeBuilder(2)
	sub.Add() // consumes the two declared inputs, pushes one
	require.NoError(t, sub.Err())

	parent := NewBuilder()
	parent.Append(sub)
	assert.ErrorIs(t, parent.Err(), ErrStackUnderflow)
}

func TestBuilderAppendPendingInputFailsValidate(t *testing.T) {
	b := NewSubtreeBuilder(1)
	b.PushChannel(1).End()
	assert.ErrorIs(t, b.Validate(), ErrPendingInput)
}
