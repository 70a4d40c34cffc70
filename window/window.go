// Package window opens the GLFW window the renderer presents to and delivers its
// input events.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/frame"
)

// Config describes the window to open.
type Config struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
}

// Window is a GLFW window without a client API. All methods must be called from
// the main thread.
type Window struct {
	handle  *glfw.Window
	resized *frame.Mailbox
	log     *slog.Logger
}

// Open initializes GLFW and creates the window. Framebuffer resize events are
// posted to resized.
func Open(cfg Config, resized *frame.Mailbox, log *slog.Logger) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw.Init")
	}

	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("GLFW reports no Vulkan support")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, boolHint(cfg.Resizable))

	handle, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "creating window")
	}

	w := &Window{handle: handle, resized: resized, log: log}
	handle.SetFramebufferSizeCallback(w.frameBufferResizeCallback)

	return w, nil
}

// Close destroys the window and terminates GLFW.
func (w *Window) Close() {
	w.handle.Destroy()
	glfw.Terminate()
}

// ProcAddr returns the address of vkGetInstanceProcAddr as loaded by GLFW.
func (w *Window) ProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// RequiredInstanceExtensions lists the instance extensions surfaces need.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

// CreateSurface creates a presentation surface for the window.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "cannot create surface within GLFW window")
	}

	return vk.SurfaceFromPointer(surfacePtr), nil
}

// FramebufferSize returns the drawable size in pixels. It is zero while the window
// is minimized.
func (w *Window) FramebufferSize() (width, height int) {
	return w.handle.GetFramebufferSize()
}

// WaitEvents blocks until at least one event arrives.
func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

// PollEvents processes pending events without blocking.
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool {
	return w.handle.ShouldClose()
}

func (w *Window) frameBufferResizeCallback(_ *glfw.Window, width int, height int) {
	w.log.Debug("framebuffer resized", slog.Int("width", width), slog.Int("height", height))
	w.resized.Notify()
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
