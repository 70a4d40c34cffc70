package queues

import (
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/optional"
)

// FamilyIndices holds the indexes of the Vulkan queue families the renderer submits to.
type FamilyIndices struct {

	// Graphics is the index of the graphics queue family.
	Graphics optional.Optional[uint32]

	// Present is the index of the queue family used for presenting to the drawing
	// surface.
	Present optional.Optional[uint32]
}

// IsComplete returns true if all families have been set.
func (f *FamilyIndices) IsComplete() bool {
	return f.Graphics.HasValue() && f.Present.HasValue()
}

// Shared reports whether graphics and presentation use one family. Swapchain images
// can only be owned exclusively in that case.
func (f *FamilyIndices) Shared() bool {
	return f.IsComplete() && f.Graphics.Get() == f.Present.Get()
}

// Unique returns the distinct family indices, graphics first. One device queue is
// created for each of them.
func (f *FamilyIndices) Unique() []uint32 {
	if !f.IsComplete() {
		return nil
	}
	if f.Shared() {
		return []uint32{f.Graphics.Get()}
	}
	return []uint32{f.Graphics.Get(), f.Present.Get()}
}
