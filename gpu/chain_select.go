package gpu

import (
	"cmp"
	"math"

	vk "github.com/vulkan-go/vulkan"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/queues"
)

// surfaceSupport describes what a device can do with a present surface.
type surfaceSupport struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

// chainPlan holds every parameter of a swapchain. It only depends on its inputs, so
// planning twice against the same surface state gives the same chain.
type chainPlan struct {
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
	imageCount  uint32
	transform   vk.SurfaceTransformFlagBits

	sharing  vk.SharingMode
	families []uint32
}

func planChain(
	support surfaceSupport,
	families queues.FamilyIndices,
	fbWidth, fbHeight int,
) chainPlan {
	sharing, shared := chooseSharing(families)

	return chainPlan{
		format:      chooseFormat(support.formats),
		presentMode: choosePresentMode(support.presentModes),
		extent:      chooseExtent(support.capabilities, fbWidth, fbHeight),
		imageCount:  chooseImageCount(support.capabilities),
		transform:   support.capabilities.CurrentTransform,
		sharing:     sharing,
		families:    shared,
	}
}

// chooseFormat prefers 8-bit BGRA sRGB and falls back to the first format offered.
func chooseFormat(availableFormats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == vk.FormatB8g8r8a8Srgb &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

// choosePresentMode prefers mailbox. FIFO is always available.
func choosePresentMode(available []vk.PresentMode) vk.PresentMode {
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}

	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent unless the surface leaves it to the
// application, in which case the window's framebuffer size is clamped to the allowed
// range.
func chooseExtent(capabilities vk.SurfaceCapabilities, fbWidth, fbHeight int) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	return vk.Extent2D{
		Width: clamp(
			uint32(max(fbWidth, 0)),
			capabilities.MinImageExtent.Width,
			capabilities.MaxImageExtent.Width,
		),
		Height: clamp(
			uint32(max(fbHeight, 0)),
			capabilities.MinImageExtent.Height,
			capabilities.MaxImageExtent.Height,
		),
	}
}

// chooseImageCount asks for one image more than the minimum. A maximum of zero
// means there is no limit.
func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

// chooseSharing shares the images between both families when they differ.
func chooseSharing(families queues.FamilyIndices) (vk.SharingMode, []uint32) {
	if families.Shared() {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, families.Unique()
}

func clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		val = min
	}
	if val > max {
		val = max
	}
	return val
}
