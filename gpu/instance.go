// Package gpu implements the Vulkan side of the renderer: the instance, the device
// context, the surface chain, the pipeline, the frame slots and mesh buffers.
//
// Everything here must be used from the thread that owns the window.
package gpu

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

const (
	validationLayer      = "VK_LAYER_KHRONOS_validation"
	debugReportExtension = "VK_EXT_debug_report"
)

// InstanceConfig describes the Vulkan instance to create.
type InstanceConfig struct {
	// AppName is reported to the driver.
	AppName string

	// ProcAddr is the address of vkGetInstanceProcAddr, as provided by the window
	// system.
	ProcAddr unsafe.Pointer

	// Extensions are the instance extensions the window system needs to create
	// a surface.
	Extensions []string

	// Validation enables the Khronos validation layer and forwards its messages
	// to Logger.
	Validation bool

	// Logger is used by the instance and everything created from it. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Instance is the Vulkan instance together with the optional validation callback.
type Instance struct {
	handle vk.Instance
	layers []string
	debug  vk.DebugReportCallback
	log    *slog.Logger
}

// NewInstance loads the Vulkan entry points and creates the instance.
func NewInstance(cfg InstanceConfig) (*Instance, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	if cfg.ProcAddr != nil {
		vk.SetGetInstanceProcAddr(cfg.ProcAddr)
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to init Vulkan Go")
	}

	inst := &Instance{
		handle: vk.Instance(vk.NullHandle),
		debug:  vk.DebugReportCallback(vk.NullHandle),
		log:    log,
	}

	extensions := cfg.Extensions
	if cfg.Validation {
		if !layerAvailable(validationLayer) {
			return nil, errors.Wrapf(ErrValidationUnavailable, "layer %s", validationLayer)
		}
		inst.layers = []string{validationLayer}
		extensions = append(extensions[:len(extensions):len(extensions)], debugReportExtension)
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cfg.AppName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	extensions = cstrings(extensions)
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if len(inst.layers) > 0 {
		layers := cstrings(inst.layers)
		createInfo.EnabledLayerCount = uint32(len(layers))
		createInfo.PpEnabledLayerNames = layers
	}

	var instance vk.Instance
	if err := vkError(vk.CreateInstance(&createInfo, nil, &instance), "failed to create Vulkan instance"); err != nil {
		return nil, err
	}
	inst.handle = instance

	if err := vk.InitInstance(instance); err != nil {
		inst.Destroy()
		return nil, errors.Wrap(err, "loading instance functions")
	}

	if cfg.Validation {
		if err := inst.setupDebugReport(); err != nil {
			inst.Destroy()
			return nil, err
		}
	}

	return inst, nil
}

// Handle returns the vk.Instance.
func (i *Instance) Handle() vk.Instance { return i.handle }

// Logger returns the logger shared by objects created from this instance.
func (i *Instance) Logger() *slog.Logger { return i.log }

// Destroy releases the instance. Every object created from it must be gone.
func (i *Instance) Destroy() {
	if i.debug != vk.DebugReportCallback(vk.NullHandle) {
		vk.DestroyDebugReportCallback(i.handle, i.debug, nil)
		i.debug = vk.DebugReportCallback(vk.NullHandle)
	}
	if i.handle != vk.Instance(vk.NullHandle) {
		vk.DestroyInstance(i.handle, nil)
		i.handle = vk.Instance(vk.NullHandle)
	}
}

// DestroySurface releases a surface created for this instance.
func (i *Instance) DestroySurface(surface vk.Surface) {
	if surface != vk.NullSurface {
		vk.DestroySurface(i.handle, surface, nil)
	}
}

func (i *Instance) setupDebugReport() error {
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(
			vk.DebugReportErrorBit |
				vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit,
		),
		PfnCallback: i.debugCallback,
	}

	var callback vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(i.handle, &createInfo, nil, &callback)
	if err := vkError(res, "failed to set up the debug report callback"); err != nil {
		return err
	}
	i.debug = callback
	return nil
}

// debugCallback forwards validation messages to the log. They never stop the
// program.
func (i *Instance) debugCallback(
	flags vk.DebugReportFlags,
	_ vk.DebugReportObjectType,
	_ uint64,
	_ uint,
	messageCode int32,
	layerPrefix string,
	message string,
	_ unsafe.Pointer,
) vk.Bool32 {
	severity := "warning"
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		severity = "error"
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		severity = "performance"
	}

	i.log.Warn("validation layer",
		slog.String("severity", severity),
		slog.String("layer", layerPrefix),
		slog.Int("code", int(messageCode)),
		slog.String("message", message),
	)
	return vk.False
}

func layerAvailable(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, availableLayers) != vk.Success {
		return false
	}

	names := make([]string, 0, count)
	for _, layer := range availableLayers {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return hasAll(names, []string{name})
}

// hasAll reports whether every name in required appears in available.
func hasAll(available, required []string) bool {
	return len(missing(available, required)) == 0
}

// missing returns the names in required that are not in available. Trailing NULs
// are ignored on both sides.
func missing(available, required []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[trimNUL(name)] = struct{}{}
	}

	var out []string
	for _, name := range required {
		if _, ok := have[trimNUL(name)]; !ok {
			out = append(out, trimNUL(name))
		}
	}
	return out
}

func trimNUL(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\x00' {
		s = s[:len(s)-1]
	}
	return s
}
