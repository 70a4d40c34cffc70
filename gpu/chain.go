package gpu

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/frame"
)

// Window is what the chain needs from the window it presents to.
type Window interface {
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
	// WaitEvents blocks until the window system delivers an event.
	WaitEvents()
}

// SurfaceChain is the swapchain of a surface together with the image views and
// framebuffers built on its images. It implements frame.Chain.
type SurfaceChain struct {
	dev     *DeviceContext
	surface vk.Surface
	win     Window
	log     *slog.Logger

	renderPass vk.RenderPass

	swapChain    vk.Swapchain
	images       []vk.Image
	views        []vk.ImageView
	framebuffers []vk.Framebuffer
	format       vk.SurfaceFormat
	extent       vk.Extent2D
}

var _ frame.Chain = (*SurfaceChain)(nil)

// NewSurfaceChain creates the swapchain and its image views. Framebuffers follow
// once a render pass is attached.
func NewSurfaceChain(dev *DeviceContext, surface vk.Surface, win Window) (*SurfaceChain, error) {
	c := &SurfaceChain{
		dev:        dev,
		surface:    surface,
		win:        win,
		log:        dev.log,
		renderPass: vk.RenderPass(vk.NullHandle),
		swapChain:  vk.NullSwapchain,
	}

	if err := c.create(); err != nil {
		c.Destroy()
		return nil, err
	}

	return c, nil
}

// Format returns the pixel format of the chain's images.
func (c *SurfaceChain) Format() vk.Format { return c.format.Format }

// Extent returns the size of the chain's images.
func (c *SurfaceChain) Extent() vk.Extent2D { return c.extent }

// ImageCount returns the number of images in the chain.
func (c *SurfaceChain) ImageCount() int { return len(c.images) }

// Framebuffer returns the framebuffer wrapping the given image.
func (c *SurfaceChain) Framebuffer(image uint32) vk.Framebuffer {
	return c.framebuffers[image]
}

// AttachRenderPass creates a framebuffer per image for renderPass. The render pass
// must outlive the chain; rebuilds keep using it.
func (c *SurfaceChain) AttachRenderPass(renderPass vk.RenderPass) error {
	c.renderPass = renderPass
	return c.createFramebuffers()
}

// DetachRenderPass destroys the framebuffers. It must run before the render pass
// is destroyed.
func (c *SurfaceChain) DetachRenderPass() {
	c.destroyFramebuffers()
	c.renderPass = vk.RenderPass(vk.NullHandle)
}

// Acquire requests the next image, signaling the slot's ImageAvailable semaphore.
func (c *SurfaceChain) Acquire(slot frame.Signals) (uint32, frame.Status, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(
		c.dev.Device,
		c.swapChain,
		math.MaxUint64,
		slot.ImageAvailable(),
		vk.NullFence,
		&imageIndex,
	)

	status, err := presentStatus(res)
	if err != nil {
		return 0, status, errors.Wrap(err, "failed to acquire swap chain image")
	}
	return imageIndex, status, nil
}

// Present queues image for presentation once the slot's RenderFinished semaphore
// is signaled.
func (c *SurfaceChain) Present(slot frame.Signals, image uint32) (frame.Status, error) {
	waitSemaphores := []vk.Semaphore{slot.RenderFinished()}
	swapChains := []vk.Swapchain{c.swapChain}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     uint32(len(swapChains)),
		PSwapchains:        swapChains,
		PImageIndices:      []uint32{image},
	}

	status, err := presentStatus(vk.QueuePresent(c.dev.PresentQueue, &presentInfo))
	if err != nil {
		return status, errors.Wrap(err, "failed to present swap chain image")
	}
	return status, nil
}

// Rebuild recreates the swapchain, its views and framebuffers for the current
// window size. While the window has no area it blocks waiting for window events.
// The render pass and everything else built on the device are left alone.
func (c *SurfaceChain) Rebuild() error {
	waitForArea(c.win)

	c.dev.WaitIdle()

	previous := c.format.Format
	c.cleanup()

	if err := c.create(); err != nil {
		return err
	}
	if c.format.Format != previous {
		c.log.Warn("swap chain format changed on rebuild",
			slog.Int("was", int(previous)),
			slog.Int("now", int(c.format.Format)),
		)
	}

	if c.renderPass != vk.RenderPass(vk.NullHandle) {
		if err := c.createFramebuffers(); err != nil {
			return err
		}
	}

	return nil
}

// Destroy releases the framebuffers, image views and the swapchain.
func (c *SurfaceChain) Destroy() {
	c.cleanup()
}

func (c *SurfaceChain) cleanup() {
	c.destroyFramebuffers()

	for _, imageView := range c.views {
		vk.DestroyImageView(c.dev.Device, imageView, nil)
	}
	c.views = nil

	if c.swapChain != vk.NullSwapchain {
		vk.DestroySwapchain(c.dev.Device, c.swapChain, nil)
		c.swapChain = vk.NullSwapchain
	}
	c.images = nil
}

func (c *SurfaceChain) destroyFramebuffers() {
	for _, framebuffer := range c.framebuffers {
		vk.DestroyFramebuffer(c.dev.Device, framebuffer, nil)
	}
	c.framebuffers = nil
}

func (c *SurfaceChain) create() error {
	support, err := querySurface(c.dev.Physical, c.surface)
	if err != nil {
		return err
	}
	if len(support.formats) == 0 {
		return errors.New("surface offers no formats")
	}

	width, height := c.win.FramebufferSize()
	plan := planChain(support, c.dev.Families, width, height)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          c.surface,
		MinImageCount:    plan.imageCount,
		ImageColorSpace:  plan.format.ColorSpace,
		ImageFormat:      plan.format.Format,
		ImageExtent:      plan.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: plan.sharing,
		PreTransform:     plan.transform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      plan.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if plan.sharing == vk.SharingModeConcurrent {
		createInfo.QueueFamilyIndexCount = uint32(len(plan.families))
		createInfo.PQueueFamilyIndices = plan.families
	}

	var swapChain vk.Swapchain
	res := vk.CreateSwapchain(c.dev.Device, &createInfo, nil, &swapChain)
	if err := vkError(res, "failed to create swap chain"); err != nil {
		return err
	}
	c.swapChain = swapChain

	var imagesCount uint32
	res = vk.GetSwapchainImages(c.dev.Device, c.swapChain, &imagesCount, nil)
	if err := vkError(res, "failed to get the swap chain image count"); err != nil {
		return err
	}
	images := make([]vk.Image, imagesCount)
	res = vk.GetSwapchainImages(c.dev.Device, c.swapChain, &imagesCount, images)
	if err := vkError(res, "failed to get the swap chain images"); err != nil {
		return err
	}

	c.images = images
	c.format = plan.format
	c.extent = plan.extent

	if err := c.createImageViews(); err != nil {
		return err
	}

	c.log.Debug("swap chain created",
		slog.Int("images", len(c.images)),
		slog.Int("width", int(c.extent.Width)),
		slog.Int("height", int(c.extent.Height)),
		slog.Int("format", int(c.format.Format)),
		slog.Int("present_mode", int(plan.presentMode)),
	)

	return nil
}

func (c *SurfaceChain) createImageViews() error {
	for i, swapChainImage := range c.images {
		createInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapChainImage,
			ViewType: vk.ImageViewType2d,
			Format:   c.format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var imageView vk.ImageView
		res := vk.CreateImageView(c.dev.Device, &createInfo, nil, &imageView)
		if err := vkError(res, "failed to create image view"); err != nil {
			return errors.Wrapf(err, "image %d", i)
		}

		c.views = append(c.views, imageView)
	}

	return nil
}

func (c *SurfaceChain) createFramebuffers() error {
	c.framebuffers = make([]vk.Framebuffer, 0, len(c.views))

	for i, view := range c.views {
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      c.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           c.extent.Width,
			Height:          c.extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		res := vk.CreateFramebuffer(c.dev.Device, &framebufferInfo, nil, &framebuffer)
		if err := vkError(res, "failed to create framebuffer"); err != nil {
			return errors.Wrapf(err, "image %d", i)
		}

		c.framebuffers = append(c.framebuffers, framebuffer)
	}

	return nil
}

// waitForArea blocks on window events until the framebuffer has a non-zero width
// and height.
func waitForArea(win Window) {
	for {
		width, height := win.FramebufferSize()
		if width > 0 && height > 0 {
			return
		}
		win.WaitEvents()
	}
}

// presentStatus maps an acquire or present result onto the frame protocol. Results
// other than success, suboptimal and out of date are fatal.
func presentStatus(res vk.Result) (frame.Status, error) {
	switch res {
	case vk.Success:
		return frame.StatusOK, nil
	case vk.Suboptimal:
		return frame.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return frame.StatusOutOfDate, nil
	}
	err := vk.Error(res)
	if err == nil {
		err = errors.Newf("unexpected result %d", int32(res))
	}
	return frame.StatusOK, errors.Mark(err, ErrSwapchain)
}
