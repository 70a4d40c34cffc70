package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/linmath"
)

const (
	starPoints      = 4
	starOuterRadius = 0.8
	starInnerRadius = 0.3
)

var (
	starCenterColor = linmath.Vec4{1, 1, 1, 1}
	starTipColors   = [starPoints]linmath.Vec4{
		{1, 0.2, 0.2, 1},
		{0.2, 1, 0.2, 1},
		{0.2, 0.4, 1, 1},
		{1, 0.9, 0.2, 1},
	}
	starNotchColor = linmath.Vec4{0.6, 0.2, 0.8, 0.4}
)

// Star returns a four-pointed star: the center followed by eight perimeter points that
// alternate between tip and notch, starting at the top and walking clockwise in
// framebuffer space. Each triangle fans from the center, which gives 9 vertices and
// 24 indices.
func Star() Mesh {
	const perimeter = 2 * starPoints

	mesh := Mesh{
		Vertices: make([]Vertex, 0, perimeter+1),
		Indices:  make([]uint16, 0, 3*perimeter),
	}
	mesh.Vertices = append(mesh.Vertices, Vertex{Color: starCenterColor})

	step := 2 * math.Pi / float32(perimeter)
	for i := 0; i < perimeter; i++ {
		radius, color := float32(starOuterRadius), starNotchColor
		if i%2 == 0 {
			color = starTipColors[i/2]
		} else {
			radius = starInnerRadius
		}

		// Framebuffer y grows downwards, so a positive rotation walks clockwise.
		p := mgl32.Rotate2D(step * float32(i)).Mul2x1(mgl32.Vec2{0, -radius})
		mesh.Vertices = append(mesh.Vertices, Vertex{
			Pos:   linmath.Vec2{p.X(), p.Y()},
			Color: color,
		})
	}

	for i := 0; i < perimeter; i++ {
		next := (i+1)%perimeter + 1
		mesh.Indices = append(mesh.Indices, 0, uint16(i+1), uint16(next))
	}

	return mesh
}
