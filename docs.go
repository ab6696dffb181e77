/*
Package vkc is a small abstraction atop Vulkan for compute-only workloads in go.
Vulkan is a very powerful but very explicit API: everything OpenCL or CUDA would
manage for you - device selection, memory placement, cache coherency, command
recording, synchronization - is the application's problem. This package takes on
exactly that bookkeeping for compute dispatch, and nothing more. There is no
graphics pipeline, no swapchain and no image support here; if you need to put
pixels on a screen this is not the package you are looking for.

The object model follows Vulkan's own, with one wrapper per driver object:

	Instance	the vulkan runtime instance, enumerates physical devices
	PhysicalDevice	the physical hardware device and its cached DeviceInfo
	Device		a logical device owning one compute queue and a transfer pool
	Buffer		a storage/uniform/staging buffer plus its exclusive allocation
	MappedRegion	a scoped host mapping of a buffer range
	ComputeProgram	shader module, descriptors, pipeline, command buffer, fence
	SubmitHandle	a single-use completion token for asynchronous work

A typical compute application initializes Vulkan, picks a device, allocates a
few buffers, uploads operands, builds one ComputeProgram around a SPIR-V blob
and dispatches it:

	vkc.InitializeForComputeOnly()
	app := vkc.App{Name: "squares"}
	instance, _ := app.CreateInstance()
	pdevices, _ := instance.PhysicalDevices()
	pdevice, _ := vkc.SelectPhysicalDevice(pdevices, -1)
	device, _ := pdevice.CreateComputeDevice()

	buf, _ := device.CreateBuffer(n*4, vkc.UsageStorage, vkc.HostAccessReadWrite)
	code, _ := vkc.LoadSPIRVFile("squares.spv")
	prog, _ := device.CreateComputeProgram(vkc.ProgramConfig{
		Code:          code,
		WorkgroupSize: [3]uint32{64, 1, 1},
		Bindings: []vkc.BufferBinding{
			{Set: 0, Binding: 0, Type: vk.DescriptorTypeStorageBuffer, Buffer: buf},
		},
	})
	prog.SetWorkgroups(n/64, 1, 1)
	prog.Dispatch()

Ownership is strict: every wrapper owns its driver handle exclusively and
Destroy/Teardown may be called exactly once per object (both are idempotent).
Buffers and ComputePrograms hold a plain back-reference to their Device and
must not outlive it; a Buffer must outlive every ComputeProgram bound to it.

Nothing in this package locks. A Device, Buffer or ComputeProgram instance may
only be used from one goroutine at a time; callers that want concurrent GPU
work should build multiple ComputeProgram instances, or use the Async dispatch
and copy variants, which return a SubmitHandle that can be waited on later.

Host/device memory visibility is always explicit. Dispatch records the
host-write to shader-read and shader-write to host-read pipeline barriers for
you, and MappedRegion performs the flush/invalidate calls required on
non-coherent memory, expanded to the device's non-coherent atom size.
*/
package vkc
