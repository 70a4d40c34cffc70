package geometry

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// cross is the z component of (b-a)x(c-a) with y pointing down. Positive values are
// clockwise on screen.
func cross(t [3]linmath.Vec2) float32 {
	return (t[1][0]-t[0][0])*(t[2][1]-t[0][1]) - (t[1][1]-t[0][1])*(t[2][0]-t[0][0])
}

func TestStar(t *testing.T) {
	star := Star()

	require.Len(t, star.Vertices, 9)
	require.Len(t, star.Indices, 24)
	assert.Equal(t, uint32(24), star.IndexCount())
	assert.Equal(t, vk.IndexTypeUint16, star.IndexType())

	for _, idx := range star.Indices {
		assert.Less(t, int(idx), len(star.Vertices))
	}

	tris := star.Triangles()
	require.Len(t, tris, 8)
	for i, tri := range tris {
		assert.Greater(t, cross(tri), float32(0), "triangle %d is not clockwise", i)
	}

	// The first perimeter point is the top tip.
	assert.InDelta(t, 0, star.Vertices[1].Pos[0], 1e-6)
	assert.InDelta(t, -starOuterRadius, star.Vertices[1].Pos[1], 1e-6)
}

func TestVertexLayout(t *testing.T) {
	l := VertexLayout()
	assert.Equal(t, uint32(unsafe.Sizeof(Vertex{})), l.Stride)
	assert.Equal(t, uint32(24), l.Stride)
	require.Len(t, l.Attributes, 2)

	assert.Equal(t, Attribute{Location: 0, Format: vk.FormatR32g32Sfloat, Offset: 0}, l.Attributes[0])
	assert.Equal(t, Attribute{Location: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 8}, l.Attributes[1])
}

const quadOBJ = `
o quad
v -0.5 -0.5 0
v 0.5 -0.5 0
v 0.5 0.5 0
v -0.5 0.5 0
f 1 2 3 4
f 1 2 3
`

func TestLoadOBJ(t *testing.T) {
	mesh, err := LoadOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint16{0, 1, 2, 0, 2, 3, 0, 1, 2}, mesh.Indices)
	assert.Equal(t, linmath.Vec2{0.5, 0.5}, mesh.Vertices[2].Pos)
}

func TestLoadOBJNoFaces(t *testing.T) {
	_, err := LoadOBJ(strings.NewReader("v 0 0 0\n"))
	assert.Error(t, err)
}
