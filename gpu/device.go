package gpu

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/queues"
)

// Requirements lists what a physical device must support to be picked.
type Requirements struct {
	// Extensions are device extension names.
	Extensions []string
}

// DefaultRequirements asks for swapchain support, which presenting needs.
func DefaultRequirements() Requirements {
	return Requirements{
		Extensions: []string{vk.KhrSwapchainExtensionName},
	}
}

// DeviceContext is the chosen physical device, the logical device created on it,
// its queues and the command pool every command buffer is allocated from.
type DeviceContext struct {
	Physical vk.PhysicalDevice
	Device   vk.Device
	Name     string

	Families      queues.FamilyIndices
	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	CommandPool vk.CommandPool

	memory vk.PhysicalDeviceMemoryProperties
	log    *slog.Logger
}

// NewDeviceContext picks the first physical device able to render to surface and
// present it, then creates the logical device and its command pool.
func NewDeviceContext(inst *Instance, surface vk.Surface, req Requirements) (*DeviceContext, error) {
	log := inst.Logger()

	physical, err := enumeratePhysicalDevices(inst.Handle())
	if err != nil {
		return nil, err
	}

	infos := make([]deviceInfo, len(physical))
	for i, device := range physical {
		info, err := queryDevice(device, surface)
		if err != nil {
			log.Warn("skipping device",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
		}
		infos[i] = info

		reason := info.unsuitable(req.Extensions)
		log.Debug("available device",
			slog.String("name", info.name),
			slog.Bool("suitable", reason == ""),
			slog.String("reason", reason),
		)
	}

	picked, err := pickDevice(infos, req.Extensions)
	if err != nil {
		return nil, err
	}

	d := &DeviceContext{
		Physical:    physical[picked],
		Device:      vk.Device(vk.NullHandle),
		Name:        infos[picked].name,
		Families:    findFamilies(infos[picked].families),
		CommandPool: vk.CommandPool(vk.NullHandle),
		log:         log,
	}
	log.Info("selected GPU", slog.String("name", d.Name))

	vk.GetPhysicalDeviceMemoryProperties(d.Physical, &d.memory)
	d.memory.Deref()
	for i := uint32(0); i < d.memory.MemoryTypeCount; i++ {
		d.memory.MemoryTypes[i].Deref()
	}

	if err := d.createLogicalDevice(inst, req); err != nil {
		return nil, err
	}

	if err := d.createCommandPool(); err != nil {
		d.Destroy()
		return nil, err
	}

	return d, nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *DeviceContext) WaitIdle() {
	if d.Device != vk.Device(vk.NullHandle) {
		vk.DeviceWaitIdle(d.Device)
	}
}

// Destroy releases the command pool and the logical device.
func (d *DeviceContext) Destroy() {
	if d.CommandPool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(d.Device, d.CommandPool, nil)
		d.CommandPool = vk.CommandPool(vk.NullHandle)
	}
	if d.Device != vk.Device(vk.NullHandle) {
		vk.DestroyDevice(d.Device, nil)
		d.Device = vk.Device(vk.NullHandle)
	}
}

func (d *DeviceContext) createLogicalDevice(inst *Instance, req Requirements) error {
	queueCreateInfos := []vk.DeviceQueueCreateInfo{}
	for _, familyIndex := range d.Families.Unique() {
		queueCreateInfos = append(
			queueCreateInfos,
			vk.DeviceQueueCreateInfo{
				SType:            vk.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: familyIndex,
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			},
		)
	}

	extensions := cstrings(req.Extensions)
	createInfo := vk.DeviceCreateInfo{
		SType:            vk.StructureTypeDeviceCreateInfo,
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{}},

		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),

		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	if len(inst.layers) > 0 {
		layers := cstrings(inst.layers)
		createInfo.PpEnabledLayerNames = layers
		createInfo.EnabledLayerCount = uint32(len(layers))
	}

	var device vk.Device
	res := vk.CreateDevice(d.Physical, &createInfo, nil, &device)
	if err := vkError(res, "failed to create logical device"); err != nil {
		return err
	}
	d.Device = device

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(d.Device, d.Families.Graphics.Get(), 0, &graphicsQueue)
	d.GraphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(d.Device, d.Families.Present.Get(), 0, &presentQueue)
	d.PresentQueue = presentQueue

	return nil
}

func (d *DeviceContext) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(
			vk.CommandPoolCreateResetCommandBufferBit,
		),
		QueueFamilyIndex: d.Families.Graphics.Get(),
	}

	var commandPool vk.CommandPool
	res := vk.CreateCommandPool(d.Device, &poolInfo, nil, &commandPool)
	if err := vkError(res, "failed to create command pool"); err != nil {
		return err
	}
	d.CommandPool = commandPool

	return nil
}

func enumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	res := vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)
	if err := vkError(res, "failed to get the number of physical devices"); err != nil {
		return nil, err
	}
	if deviceCount == 0 {
		return nil, errors.Wrap(ErrNoSuitableDevice, "failed to find GPUs with Vulkan support")
	}

	devices := make([]vk.PhysicalDevice, deviceCount)
	res = vk.EnumeratePhysicalDevices(instance, &deviceCount, devices)
	if err := vkError(res, "failed to enumerate the physical devices"); err != nil {
		return nil, err
	}

	return devices[:deviceCount], nil
}

// queryDevice collects what device selection looks at. A partially filled info is
// returned along with any error and is then found unsuitable.
func queryDevice(device vk.PhysicalDevice, surface vk.Surface) (deviceInfo, error) {
	var info deviceInfo

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	info.name = vk.ToString(properties.DeviceName[:])

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i, family := range queueFamilies {
		family.Deref()

		var hasPresent vk.Bool32
		res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &hasPresent)
		if err := vkError(res, "querying surface support"); err != nil {
			return info, errors.Wrapf(err, "queue family %d", i)
		}

		info.families = append(info.families, familyInfo{
			graphics: family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			present:  hasPresent.B(),
		})
	}

	var extensionsCount uint32
	res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount, nil)
	if err := vkError(res, "enumerating device extension properties count"); err != nil {
		return info, err
	}
	availableExtensions := make([]vk.ExtensionProperties, extensionsCount)
	res = vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount, availableExtensions)
	if err := vkError(res, "getting device extension properties"); err != nil {
		return info, err
	}
	for _, extension := range availableExtensions {
		extension.Deref()
		info.extensions = append(info.extensions, vk.ToString(extension.ExtensionName[:]))
	}

	support, err := querySurface(device, surface)
	if err != nil {
		return info, err
	}
	info.formats = support.formats
	info.presentModes = support.presentModes

	return info, nil
}

// querySurface returns the swapchain support of device for surface.
func querySurface(device vk.PhysicalDevice, surface vk.Surface) (surfaceSupport, error) {
	details := surfaceSupport{}

	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(device, surface, &capabilities)
	if err := vkError(res, "failed to query device surface capabilities"); err != nil {
		return details, err
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	details.capabilities = capabilities

	var formatCount uint32
	res = vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil)
	if err := vkError(res, "failed to query device surface formats"); err != nil {
		return details, err
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, formats)
		for _, format := range formats {
			format.Deref()
			details.formats = append(details.formats, format)
		}
	}

	var presentModeCount uint32
	res = vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentModeCount, nil)
	if err := vkError(res, "failed to query device surface present modes"); err != nil {
		return details, err
	}
	if presentModeCount != 0 {
		presentModes := make([]vk.PresentMode, presentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentModeCount, presentModes)
		details.presentModes = presentModes
	}

	return details, nil
}
