// Package geometry provides the vertex data the renderer draws and the description of
// its memory layout that the pipeline consumes.
package geometry

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// Vertex is a colored 2D point. Color carries alpha, which the pipeline blends with.
type Vertex struct {
	Pos   linmath.Vec2
	Color linmath.Vec4
}

// Attribute describes one vertex input location.
type Attribute struct {
	Location uint32
	Format   vk.Format
	Offset   uint32
}

// Layout is the single vertex binding the pipeline reads from.
type Layout struct {
	Stride     uint32
	Attributes []Attribute
}

// VertexLayout returns the layout of Vertex.
func VertexLayout() Layout {
	return Layout{
		Stride: uint32(unsafe.Sizeof(Vertex{})),
		Attributes: []Attribute{
			{
				Location: 0,
				Format:   vk.FormatR32g32Sfloat,
				Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
			},
			{
				Location: 1,
				Format:   vk.FormatR32g32b32a32Sfloat,
				Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
			},
		},
	}
}

// Mesh is static indexed geometry.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

// IndexCount is the number of indices drawn.
func (m Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// IndexType is the element width of Indices.
func (m Mesh) IndexType() vk.IndexType {
	return vk.IndexTypeUint16
}

// Triangles returns the vertex positions of every triangle, in index order.
func (m Mesh) Triangles() [][3]linmath.Vec2 {
	tris := make([][3]linmath.Vec2, 0, len(m.Indices)/3)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		tris = append(tris, [3]linmath.Vec2{
			m.Vertices[m.Indices[i]].Pos,
			m.Vertices[m.Indices[i+1]].Pos,
			m.Vertices[m.Indices[i+2]].Pos,
		})
	}
	return tris
}
