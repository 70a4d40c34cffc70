package geometry

import (
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/mokiat/go-data-front/decoder/obj"
	"github.com/xlab/linmath"
)

// LoadOBJ reads a Wavefront OBJ model and flattens it into a 2D mesh: positions keep
// x and y, faces are fan-triangulated and vertices sharing a position are merged.
// Colors are derived from the position so that the result is visible without
// materials. The model must fit in 16-bit indices.
func LoadOBJ(r io.Reader) (Mesh, error) {
	decoder := obj.NewDecoder(obj.DefaultLimits())
	model, err := decoder.Decode(r)
	if err != nil {
		return Mesh{}, errors.Wrap(err, "decoding obj")
	}

	var (
		mesh   Mesh
		lookup = make(map[[3]float64]uint16)
	)

	vertexIndex := func(ref obj.Reference) (uint16, error) {
		v := model.GetVertexFromReference(ref)
		key := [3]float64{v.X, v.Y, v.Z}
		if idx, ok := lookup[key]; ok {
			return idx, nil
		}
		if len(mesh.Vertices) > math.MaxUint16 {
			return 0, errors.Newf("model has more than %d unique vertices", math.MaxUint16+1)
		}

		x, y := float32(v.X), float32(v.Y)
		idx := uint16(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, Vertex{
			Pos:   linmath.Vec2{x, y},
			Color: linmath.Vec4{(x + 1) / 2, (y + 1) / 2, 1 - (x+1)/4, 1},
		})
		lookup[key] = idx
		return idx, nil
	}

	for _, object := range model.Objects {
		for _, m := range object.Meshes {
			for _, face := range m.Faces {
				if len(face.References) < 3 {
					continue
				}

				first, err := vertexIndex(face.References[0])
				if err != nil {
					return Mesh{}, err
				}
				prev, err := vertexIndex(face.References[1])
				if err != nil {
					return Mesh{}, err
				}

				for _, ref := range face.References[2:] {
					cur, err := vertexIndex(ref)
					if err != nil {
						return Mesh{}, err
					}
					mesh.Indices = append(mesh.Indices, first, prev, cur)
					prev = cur
				}
			}
		}
	}

	if len(mesh.Indices) == 0 {
		return Mesh{}, errors.New("obj model has no faces")
	}

	return mesh, nil
}
