package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileChannelPlusChannel(t *testing.T) {
	b, err := New().Compile("c1 + c2")
	require.NoError(t, err)
	bytes, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x01, 0x01, 0x00, 0x02, 0x06, 0x00}, bytes)
}

func TestCompileAllConstantsRejected(t *testing.T) {
	_, err := New().Compile("1 + 2 * 3")
	assert.Error(t, err)
}

func TestCompileUnaryFoldedIntoLiteral(t *testing.T) {
	b, err := New().Compile("c5 + -3.5")
	require.NoError(t, err)
	bytes, err := b.Encode()
	require.NoError(t, err)

	require.Len(t, bytes, 1+2+1+4+1+1)
	assert.Equal(t, byte(0x01), bytes[0]) // PUSH_CHANNEL
	assert.Equal(t, byte(0x02), bytes[3]) // PUSH_FLOAT
	assert.Equal(t, byte(0x06), bytes[8]) // ADD
	assert.Equal(t, byte(0x00), bytes[9]) // END
}

func TestCompileBracketsOverridePrecedence(t *testing.T) {
	b, err := New().Compile("(c1 + c2) * c3")
	require.NoError(t, err)
	assert.NoError(t, b.Validate())
}

func TestCompileFunctionCall(t *testing.T) {
	b, err := New().Compile("sqrt(c1)")
	require.NoError(t, err)
	bytes, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x01, 0x0F, 0x00}, bytes)
}

func TestCompileRejectsUnbalancedBrackets(t *testing.T) {
	_, err := New().Compile("(c1 + c2")
	assert.Error(t, err)
}

func TestCompileRejectsInvalidAdjacency(t *testing.T) {
	_, err := New().Compile("c1 c2")
	assert.Error(t, err)
}

func TestCompileRejectsEmptyExpression(t *testing.T) {
	_, err := New().Compile("()")
	assert.Error(t, err)
}

func TestCompileNestedFunctionAndUnary(t *testing.T) {
	b, err := New().Compile("-sqrt(c1) + c2")
	require.NoError(t, err)
	assert.NoError(t, b.Validate())
}

func TestCompileChainedAdditionUsesCheaperOperandOrder(t *testing.T) {
	b, err := New().Compile("c1 + c2 + c3 + c4")
	require.NoError(t, err)
	require.NoError(t, b.Validate())
	assert.LessOrEqual(t, b.MaxStackDepth(), 2)
}
