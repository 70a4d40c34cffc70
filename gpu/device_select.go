package gpu

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/queues"
)

// familyInfo is what device selection needs to know about one queue family.
type familyInfo struct {
	graphics bool
	present  bool
}

// deviceInfo is a snapshot of a physical device's capabilities with respect to the
// surface being rendered to.
type deviceInfo struct {
	name         string
	families     []familyInfo
	extensions   []string
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

// findFamilies returns the graphics and present family indices. The search stops
// as soon as both are known, so a family supporting both wins over two separate
// ones found later.
func findFamilies(families []familyInfo) queues.FamilyIndices {
	indices := queues.FamilyIndices{}

	for i, family := range families {
		if family.graphics {
			indices.Graphics.Set(uint32(i))
		}
		if family.present {
			indices.Present.Set(uint32(i))
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices
}

// unsuitable returns the reason the device cannot be used, or "" when it can.
func (d deviceInfo) unsuitable(extensions []string) string {
	indices := findFamilies(d.families)
	switch {
	case !indices.Graphics.HasValue():
		return "no graphics queue family"
	case !indices.Present.HasValue():
		return "no queue family can present to the surface"
	case !hasAll(d.extensions, extensions):
		return "missing extensions"
	case len(d.formats) == 0:
		return "no surface formats"
	case len(d.presentModes) == 0:
		return "no present modes"
	}
	return ""
}

// pickDevice returns the index of the first suitable device.
func pickDevice(devices []deviceInfo, extensions []string) (int, error) {
	for i, d := range devices {
		if d.unsuitable(extensions) == "" {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrNoSuitableDevice, "%d devices checked", len(devices))
}
