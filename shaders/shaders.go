package shaders

import (
	"encoding/binary"
	"io/fs"

	"github.com/cockroachdb/errors"
)

//go:generate glslc shader.vert -o vert.spv
//go:generate glslc shader.frag -o frag.spv

const (
	// VertexFile and FragmentFile are the names Load looks for. Run `go generate`
	// in this directory to compile them from the GLSL sources.
	VertexFile   = "vert.spv"
	FragmentFile = "frag.spv"

	// EntryPoint is the entry function of both stages.
	EntryPoint = "main"

	spirvMagic = 0x07230203
)

// Stage is one compiled shader stage.
type Stage struct {
	Code  []byte
	Entry string
}

// Words returns the SPIR-V code as the uint32 stream vkCreateShaderModule expects.
func (s Stage) Words() []uint32 {
	words := make([]uint32, len(s.Code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(s.Code[i*4:])
	}
	return words
}

// Set holds the two stages consumed once when the pipeline is built.
type Set struct {
	Vertex   Stage
	Fragment Stage
}

// Load reads both stages from fsys.
func Load(fsys fs.FS) (Set, error) {
	vert, err := loadStage(fsys, VertexFile)
	if err != nil {
		return Set{}, errors.Wrap(err, "vertex shader")
	}

	frag, err := loadStage(fsys, FragmentFile)
	if err != nil {
		return Set{}, errors.Wrap(err, "fragment shader")
	}

	return Set{Vertex: vert, Fragment: frag}, nil
}

func loadStage(fsys fs.FS, name string) (Stage, error) {
	code, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Stage{}, errors.Wrapf(err, "failed to read %s", name)
	}

	if len(code) < 4 || len(code)%4 != 0 {
		return Stage{}, errors.Newf("%s: size %d is not a multiple of 4", name, len(code))
	}

	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return Stage{}, errors.Newf("%s: bad SPIR-V magic %#x", name, magic)
	}

	return Stage{Code: code, Entry: EntryPoint}, nil
}
