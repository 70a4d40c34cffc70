package gpu

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/frame"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/geometry"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/unsafer"
)

// Buffer is a buffer bound to its own device memory allocation.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

// Mesh is geometry uploaded into device local vertex and index buffers.
type Mesh struct {
	dev *DeviceContext

	Vertices   Buffer
	Indices    Buffer
	IndexType  vk.IndexType
	IndexCount uint32
}

// UploadMesh copies m into device local memory through staging buffers. It waits
// for the graphics queue to go idle, so it is only meant for start up.
func UploadMesh(dev *DeviceContext, m geometry.Mesh) (*Mesh, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return nil, errors.New("cannot upload an empty mesh")
	}

	vertices, err := dev.uploadBuffer(
		unsafer.SliceToBytes(m.Vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating the vertex buffer")
	}

	indices, err := dev.uploadBuffer(
		unsafer.SliceToBytes(m.Indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
	)
	if err != nil {
		dev.destroyBuffer(vertices)
		return nil, errors.Wrap(err, "creating the index buffer")
	}

	dev.log.Debug("mesh uploaded",
		slog.Int("vertices", len(m.Vertices)),
		slog.Int("indices", len(m.Indices)),
		slog.Int("vertex_bytes", unsafer.SizeOf(m.Vertices)),
		slog.Int("index_bytes", unsafer.SizeOf(m.Indices)),
	)

	return &Mesh{
		dev:        dev,
		Vertices:   vertices,
		Indices:    indices,
		IndexType:  m.IndexType(),
		IndexCount: m.IndexCount(),
	}, nil
}

// Draw returns what the frame loop binds and draws.
func (m *Mesh) Draw() frame.DrawData {
	return frame.DrawData{
		VertexBuffer: m.Vertices.Handle,
		IndexBuffer:  m.Indices.Handle,
		IndexType:    m.IndexType,
		IndexCount:   m.IndexCount,
	}
}

// Destroy releases both buffers. The device must be idle.
func (m *Mesh) Destroy() {
	m.dev.destroyBuffer(m.Indices)
	m.dev.destroyBuffer(m.Vertices)
	m.Indices = Buffer{}
	m.Vertices = Buffer{}
}

// uploadBuffer creates a device local buffer for usage and fills it with data.
func (d *DeviceContext) uploadBuffer(data []byte, usage vk.BufferUsageFlags) (Buffer, error) {
	size := vk.DeviceSize(len(data))

	staging, err := d.createBuffer(
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return Buffer{}, errors.Wrap(err, "creating the staging buffer")
	}
	defer d.destroyBuffer(staging)

	var pData unsafe.Pointer
	res := vk.MapMemory(d.Device, staging.Memory, 0, size, 0, &pData)
	if err := vkError(res, "mapping the staging buffer"); err != nil {
		return Buffer{}, err
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(d.Device, staging.Memory)

	buffer, err := d.createBuffer(
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)|usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return Buffer{}, err
	}

	if err := d.copyBuffer(staging.Handle, buffer.Handle, size); err != nil {
		d.destroyBuffer(buffer)
		return Buffer{}, errors.Wrap(err, "failed to copy the staging buffer")
	}

	return buffer, nil
}

func (d *DeviceContext) createBuffer(
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	properties vk.MemoryPropertyFlags,
) (Buffer, error) {
	b := Buffer{Size: size}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	res := vk.CreateBuffer(d.Device, &bufferInfo, nil, &b.Handle)
	if err := vkError(res, "failed to create buffer"); err != nil {
		return Buffer{}, err
	}

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.Device, b.Handle, &memRequirements)
	memRequirements.Deref()

	memTypeIndex, err := findMemoryType(d.memory, memRequirements.MemoryTypeBits, properties)
	if err != nil {
		d.destroyBuffer(b)
		return Buffer{}, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	res = vk.AllocateMemory(d.Device, &allocInfo, nil, &b.Memory)
	if err := vkError(res, "failed to allocate buffer memory"); err != nil {
		d.destroyBuffer(b)
		return Buffer{}, err
	}

	res = vk.BindBufferMemory(d.Device, b.Handle, b.Memory, 0)
	if err := vkError(res, "failed to bind buffer memory"); err != nil {
		d.destroyBuffer(b)
		return Buffer{}, err
	}

	return b, nil
}

func (d *DeviceContext) destroyBuffer(b Buffer) {
	if b.Handle != vk.Buffer(vk.NullHandle) {
		vk.DestroyBuffer(d.Device, b.Handle, nil)
	}
	if b.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(d.Device, b.Memory, nil)
	}
}

func (d *DeviceContext) copyBuffer(src, dst vk.Buffer, size vk.DeviceSize) error {
	return d.singleTimeCommands(func(commandBuffer vk.CommandBuffer) {
		copyRegion := vk.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		}
		vk.CmdCopyBuffer(commandBuffer, src, dst, 1, []vk.BufferCopy{copyRegion})
	})
}

// singleTimeCommands records with record into a throwaway command buffer, submits
// it and waits for the graphics queue to go idle.
func (d *DeviceContext) singleTimeCommands(record func(vk.CommandBuffer)) error {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        d.CommandPool,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(d.Device, &allocInfo, commandBuffers)
	if err := vkError(res, "failed to allocate command buffer"); err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(d.Device, d.CommandPool, 1, commandBuffers)
	commandBuffer := commandBuffers[0]

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	res = vk.BeginCommandBuffer(commandBuffer, &beginInfo)
	if err := vkError(res, "failed to begin command buffer"); err != nil {
		return err
	}

	record(commandBuffer)

	res = vk.EndCommandBuffer(commandBuffer)
	if err := vkError(res, "failed end command buffer"); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}

	res = vk.QueueSubmit(d.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)
	if err := vkError(res, "failed to submit to graphics queue"); err != nil {
		return err
	}

	res = vk.QueueWaitIdle(d.GraphicsQueue)
	return vkError(res, "failed to wait on graphics queue idle")
}

// findMemoryType returns the first memory type allowed by typeFilter that has all
// of properties.
func findMemoryType(
	memProperties vk.PhysicalDeviceMemoryProperties,
	typeFilter uint32,
	properties vk.MemoryPropertyFlags,
) (uint32, error) {
	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		memType := memProperties.MemoryTypes[i]

		if typeFilter&(1<<i) == 0 {
			continue
		}

		if memType.PropertyFlags&properties != properties {
			continue
		}

		return i, nil
	}

	return 0, errors.Newf("failed to find suitable memory type for filter %#x", typeFilter)
}
