package unsafer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceToBytes(t *testing.T) {
	in := []uint16{1, 0x0203}
	b := SliceToBytes(in)
	require.Len(t, b, 4)
	assert.Equal(t, uint16(1), binary.NativeEndian.Uint16(b[0:]))
	assert.Equal(t, uint16(0x0203), binary.NativeEndian.Uint16(b[2:]))

	// Same memory, not a copy.
	in[0] = 9
	assert.Equal(t, uint16(9), binary.NativeEndian.Uint16(b[0:]))

	assert.Nil(t, SliceToBytes([]float32{}))
	assert.Equal(t, 12, SizeOf([]float32{1, 2, 3}))
}
