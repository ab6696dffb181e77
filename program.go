package vkc

import (
	"encoding/binary"
	"fmt"
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Specialization constant IDs 0..2 carry the workgroup size, so shaders can
// declare layout(local_size_x_id = 0, local_size_y_id = 1, local_size_z_id = 2).
// IDs 3+k carry workgroup-shared array lengths keyed by k.
const (
	specIDWorkgroupX = 0
	specIDWorkgroupY = 1
	specIDWorkgroupZ = 2
	specIDLocalBase  = 3
)

// ProgramConfig describes a compute program before any GPU object exists.
// Everything in it is validated against device limits up front.
type ProgramConfig struct {
	// Code is the SPIR-V module as 32-bit words.
	Code []uint32

	// EntryPoint names the compute entry point; empty means "main".
	EntryPoint string

	// Bindings is the frozen set of buffer descriptors the shader reads and
	// writes.
	Bindings []BufferBinding

	// PushConstantSize reserves a push-constant block of this many bytes.
	// Must be a multiple of 4. Zero means no push constants.
	PushConstantSize uint32

	// WorkgroupSize is fed to the shader through specialization constants
	// 0, 1 and 2. A zero component defaults to 1.
	WorkgroupSize [3]uint32

	// LocalMemoryLengths sets the length of workgroup-shared arrays through
	// specialization constants 3+k, keyed by k.
	LocalMemoryLengths map[uint32]uint32
}

func (c *ProgramConfig) entryPoint() string {
	if c.EntryPoint == "" {
		return "main"
	}
	return c.EntryPoint
}

func (c *ProgramConfig) workgroupSize() [3]uint32 {
	wg := c.WorkgroupSize
	for i := range wg {
		if wg[i] == 0 {
			wg[i] = 1
		}
	}
	return wg
}

// validateConfig rejects a config before touching the driver. A config that
// passes here can still fail at build time, but never for a reason the host
// could have checked.
func validateConfig(info *DeviceInfo, c *ProgramConfig) error {
	if err := validateSPIRV(c.Code); err != nil {
		return err
	}

	wg := c.workgroupSize()
	invocations := uint64(1)
	for i := 0; i < 3; i++ {
		if wg[i] > info.MaxWorkgroupSize[i] {
			return configErrorf("workgroup size %v exceeds device limit %v on axis %d",
				wg, info.MaxWorkgroupSize, i)
		}
		invocations *= uint64(wg[i])
	}
	if invocations > uint64(info.MaxWorkgroupInvocations) {
		return configErrorf("workgroup size %v has %d invocations, device limit is %d",
			wg, invocations, info.MaxWorkgroupInvocations)
	}

	if c.PushConstantSize%4 != 0 {
		return configErrorf("push constant size %d is not a multiple of 4", c.PushConstantSize)
	}
	if c.PushConstantSize > info.MaxPushConstantsSize {
		return configErrorf("push constant size %d exceeds device limit %d",
			c.PushConstantSize, info.MaxPushConstantsSize)
	}

	return validateBindings(info, c.Bindings)
}

// specializationInfo packs the workgroup size and shared-array lengths into a
// single specialization data block. Entry i lives at byte offset i*4.
func specializationInfo(c *ProgramConfig) *vk.SpecializationInfo {
	maxID := uint32(specIDWorkgroupZ)
	for k := range c.LocalMemoryLengths {
		if id := specIDLocalBase + k; id > maxID {
			maxID = id
		}
	}

	data := make([]byte, (maxID+1)*4)
	wg := c.workgroupSize()
	entries := make([]vk.SpecializationMapEntry, 0, 3+len(c.LocalMemoryLengths))
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], wg[i])
		entries = append(entries, vk.SpecializationMapEntry{
			ConstantID: uint32(i),
			Offset:     uint32(i * 4),
			Size:       4,
		})
	}
	for k, length := range c.LocalMemoryLengths {
		id := specIDLocalBase + k
		binary.LittleEndian.PutUint32(data[id*4:], length)
		entries = append(entries, vk.SpecializationMapEntry{
			ConstantID: id,
			Offset:     id * 4,
			Size:       4,
		})
	}

	return &vk.SpecializationInfo{
		MapEntryCount: uint32(len(entries)),
		PMapEntries:   entries,
		DataSize:      uint(len(data)),
		PData:         unsafe.Pointer(&data[0]),
	}
}

// buildStage tracks how far construction got, so teardown after a partial
// build destroys exactly the objects that exist.
type buildStage int

const (
	stageNone buildStage = iota
	stageShader
	stageSetLayouts
	stagePipelineLayout
	stageDescriptorPool
	stageDescriptorSets
	stagePipeline
	stageFence
	stageCommandPool
	stageCommandBuffer
	stageQueryPool
	stageBuilt
)

// ComputeProgram is a runnable compute pipeline with its descriptor bindings
// frozen at build time. Workgroup counts and push constant bytes stay mutable
// between dispatches. A program and all its dispatch methods must not be used
// from more than one goroutine at a time.
type ComputeProgram struct {
	Device *Device

	config    ProgramConfig
	groups    [3]uint32
	pushData  []byte
	setGroups [][]BufferBinding

	stage       buildStage
	shader      *ShaderModule
	setLayouts  []*DescriptorSetLayout
	layout      *PipelineLayout
	descPool    *DescriptorPool
	sets        []*DescriptorSet
	pipeline    *ComputePipeline
	fence       *Fence
	commandPool *CommandPool
	command     *CommandBuffer
	queryPool   vk.QueryPool
}

// CreateComputeProgram validates the config against device limits, then builds
// the full pipeline. On any build failure everything created so far is
// destroyed before the error returns.
func (d *Device) CreateComputeProgram(config ProgramConfig) (*ComputeProgram, error) {
	if err := validateConfig(d.Info, &config); err != nil {
		return nil, err
	}

	p := &ComputeProgram{
		Device:    d,
		config:    config,
		groups:    [3]uint32{1, 1, 1},
		pushData:  make([]byte, config.PushConstantSize),
		setGroups: groupBindingsBySet(config.Bindings),
	}
	if err := p.build(); err != nil {
		p.destroyToStage(stageNone)
		return nil, err
	}
	return p, nil
}

func (p *ComputeProgram) build() error {
	d := p.Device

	shader, err := d.CreateShaderModule(p.config.Code)
	if err != nil {
		return err
	}
	p.shader = shader
	p.stage = stageShader

	for _, group := range p.setGroups {
		layout := &DescriptorSetLayout{}
		for _, b := range group {
			layout.AddBufferBinding(b.Binding, b.Type)
		}
		// A gap in the set indices still needs a layout so set numbers
		// line up; an empty one is legal.
		if _, err := d.CreateDescriptorSetLayout(layout); err != nil {
			return err
		}
		p.setLayouts = append(p.setLayouts, layout)
	}
	p.stage = stageSetLayouts

	var pushRanges []vk.PushConstantRange
	if p.config.PushConstantSize > 0 {
		pushRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       p.config.PushConstantSize,
		}}
	}
	p.layout, err = d.CreatePipelineLayoutWithPushConstants(p.setLayouts, pushRanges)
	if err != nil {
		return err
	}
	p.stage = stagePipelineLayout

	if len(p.setLayouts) > 0 {
		pool := d.NewDescriptorPool()
		for dtype, count := range descriptorCounts(p.config.Bindings) {
			pool.AddPoolSize(dtype, count)
		}
		if _, err := d.CreateDescriptorPool(pool, len(p.setLayouts)); err != nil {
			return err
		}
		p.descPool = pool
		p.stage = stageDescriptorPool

		p.sets, err = pool.Allocate(p.setLayouts...)
		if err != nil {
			return err
		}
		for set, group := range p.setGroups {
			for _, b := range group {
				p.sets[set].AddBuffer(b.Binding, b.Type, b.Buffer, b.Offset, b.resolvedRange())
			}
			p.sets[set].Write()
		}
		p.stage = stageDescriptorSets
	} else {
		p.stage = stageDescriptorSets
	}

	pipeline := d.NewComputePipeline()
	pipeline.SetPipelineLayout(p.layout)
	pipeline.SetShaderStage(p.config.entryPoint(), p.shader, specializationInfo(&p.config))
	if err := pipeline.CreateComputePipelines(); err != nil {
		return err
	}
	p.pipeline = pipeline
	p.stage = stagePipeline

	p.fence, err = d.CreateFence()
	if err != nil {
		return err
	}
	p.stage = stageFence

	p.commandPool, err = d.CreateCommandPool(d.QueueFamily)
	if err != nil {
		return err
	}
	p.stage = stageCommandPool

	p.command, err = p.commandPool.AllocateBuffer()
	if err != nil {
		return err
	}
	p.stage = stageCommandBuffer

	if d.TimestampsSupported {
		createInfo := vk.QueryPoolCreateInfo{
			SType:      vk.StructureTypeQueryPoolCreateInfo,
			QueryType:  vk.QueryTypeTimestamp,
			QueryCount: 2,
		}
		var pool vk.QueryPool
		if err := vkCheck("vkCreateQueryPool", vk.CreateQueryPool(d.VKDevice, &createInfo, nil, &pool)); err != nil {
			return fmt.Errorf("create timestamp query pool: %w", err)
		}
		p.queryPool = pool
	}
	p.stage = stageQueryPool

	p.stage = stageBuilt
	return nil
}

// destroyToStage tears down in reverse build order, stopping at target. Each
// field only ever holds an object that was actually created, so presence is
// the teardown condition; stage gating would skip objects created inside a
// build step that failed partway through (the set-layout loop).
func (p *ComputeProgram) destroyToStage(target buildStage) {
	d := p.Device
	if p.queryPool != vk.NullQueryPool {
		vk.DestroyQueryPool(d.VKDevice, p.queryPool, nil)
		p.queryPool = vk.NullQueryPool
	}
	if p.command != nil {
		p.commandPool.FreeBuffer(p.command)
		p.command = nil
	}
	if p.commandPool != nil {
		p.commandPool.Destroy()
		p.commandPool = nil
	}
	if p.fence != nil {
		p.fence.Destroy()
		p.fence = nil
	}
	if p.pipeline != nil {
		p.pipeline.Destroy()
		p.pipeline = nil
	}
	// Descriptor sets go down with their pool.
	if p.descPool != nil {
		p.descPool.Destroy()
		p.descPool = nil
		p.sets = nil
	}
	if p.layout != nil {
		p.layout.Destroy()
		p.layout = nil
	}
	for _, l := range p.setLayouts {
		l.Destroy()
	}
	p.setLayouts = nil
	if p.shader != nil {
		p.shader.Destroy()
		p.shader = nil
	}
	p.stage = target
}

// Teardown destroys every GPU object the program owns. Idempotent; bound
// buffers are untouched.
func (p *ComputeProgram) Teardown() {
	if p.stage == stageNone {
		return
	}
	p.destroyToStage(stageNone)
}

// Workgroups returns the current dispatch dimensions.
func (p *ComputeProgram) Workgroups() (x, y, z uint32) {
	return p.groups[0], p.groups[1], p.groups[2]
}

// SetWorkgroups sets how many workgroups the next dispatch launches on each
// axis. On rejection the previous dimensions stay in effect.
func (p *ComputeProgram) SetWorkgroups(x, y, z uint32) error {
	next := [3]uint32{x, y, z}
	for i, n := range next {
		if n == 0 {
			return configErrorf("workgroup count must be at least 1 on axis %d", i)
		}
		if n > p.Device.Info.MaxWorkgroupCount[i] {
			return configErrorf("workgroup count %d exceeds device limit %d on axis %d",
				n, p.Device.Info.MaxWorkgroupCount[i], i)
		}
	}
	p.groups = next
	return nil
}

// SetPushConstants copies data into the push-constant block at the byte
// offset, clamped to the block's capacity. Returns how many bytes were
// written. The bytes are recorded at the next dispatch.
func (p *ComputeProgram) SetPushConstants(offset uint32, data []byte) int {
	if int(offset) >= len(p.pushData) {
		return 0
	}
	return copy(p.pushData[offset:], data)
}

func (p *ComputeProgram) checkBuilt(op string) error {
	if p.stage != stageBuilt {
		return &StateError{Op: op, State: "program is not built"}
	}
	return nil
}

// record re-records the program's command buffer for one dispatch. With
// hostBarriers the dispatch is fenced by host-write to shader-read before and
// shader-write to host-read after; without them the caller owns visibility.
func (p *ComputeProgram) record(timed, hostBarriers bool) error {
	c := p.command
	if err := c.Reset(); err != nil {
		return err
	}
	if err := c.BeginOneTime(); err != nil {
		return err
	}

	c.CmdBindComputePipeline(p.pipeline)
	if len(p.sets) > 0 {
		c.CmdBindDescriptorSets(p.layout, 0, p.sets...)
	}
	if len(p.pushData) > 0 {
		c.CmdPushConstants(p.layout, 0, p.pushData)
	}

	if hostBarriers {
		c.CmdMemoryBarrier(vk.PipelineStageHostBit, vk.PipelineStageComputeShaderBit,
			vk.AccessHostWriteBit, vk.AccessShaderReadBit)
	}

	if timed {
		c.CmdResetQueryPool(p.queryPool, 0, 2)
		c.CmdWriteTimestamp(vk.PipelineStageComputeShaderBit, p.queryPool, 0)
	}

	c.CmdDispatch(p.groups[0], p.groups[1], p.groups[2])

	if timed {
		c.CmdWriteTimestamp(vk.PipelineStageComputeShaderBit, p.queryPool, 1)
	}

	if hostBarriers {
		c.CmdMemoryBarrier(vk.PipelineStageComputeShaderBit, vk.PipelineStageHostBit,
			vk.AccessShaderWriteBit, vk.AccessHostReadBit)
	}

	return c.End()
}

func (p *ComputeProgram) submitWait() error {
	if err := p.fence.Reset(); err != nil {
		return err
	}
	if err := p.Device.Queue.SubmitWithFence(p.fence, p.command); err != nil {
		return err
	}
	return p.fence.Wait(-1)
}

// Dispatch launches the configured workgroups and blocks until the GPU
// finishes and results are visible to the host.
func (p *ComputeProgram) Dispatch() error {
	if err := p.checkBuilt("Dispatch"); err != nil {
		return err
	}
	if err := p.record(false, true); err != nil {
		return err
	}
	return p.submitWait()
}

// DispatchNoHostBarrier is Dispatch without the host visibility barriers, for
// callers chaining GPU work that the host never reads in between.
func (p *ComputeProgram) DispatchNoHostBarrier() error {
	if err := p.checkBuilt("DispatchNoHostBarrier"); err != nil {
		return err
	}
	if err := p.record(false, false); err != nil {
		return err
	}
	return p.submitWait()
}

// DispatchAsync submits the dispatch and returns a completion handle instead
// of blocking. The program must not be dispatched or torn down again until the
// handle is consumed.
func (p *ComputeProgram) DispatchAsync() (*SubmitHandle, error) {
	return p.dispatchAsync("DispatchAsync", false)
}

func (p *ComputeProgram) dispatchAsync(op string, timed bool) (*SubmitHandle, error) {
	if err := p.checkBuilt(op); err != nil {
		return nil, err
	}
	if timed {
		if err := p.checkTimestamps(op); err != nil {
			return nil, err
		}
	}
	if err := p.record(timed, true); err != nil {
		return nil, err
	}

	fence, err := p.Device.CreateFence()
	if err != nil {
		return nil, err
	}
	if err := p.Device.Queue.SubmitWithFence(fence, p.command); err != nil {
		fence.Destroy()
		return nil, err
	}
	return &SubmitHandle{device: p.Device, fence: fence}, nil
}

func (p *ComputeProgram) checkTimestamps(op string) error {
	if !p.Device.TimestampsSupported {
		return &StateError{Op: op, State: "device has no usable timestamp support"}
	}
	return nil
}

// DispatchTimed is Dispatch plus GPU-side timing: it returns how long the
// dispatch took on the device, measured by timestamp queries around it.
func (p *ComputeProgram) DispatchTimed() (time.Duration, error) {
	if err := p.checkBuilt("DispatchTimed"); err != nil {
		return 0, err
	}
	if err := p.checkTimestamps("DispatchTimed"); err != nil {
		return 0, err
	}
	if err := p.record(true, true); err != nil {
		return 0, err
	}
	if err := p.submitWait(); err != nil {
		return 0, err
	}
	return p.readTimestamps(true)
}

// DispatchTimedAsync submits a timed dispatch without blocking. Poll the
// timing with TimedResult, or wait on the handle first.
func (p *ComputeProgram) DispatchTimedAsync() (*SubmitHandle, error) {
	return p.dispatchAsync("DispatchTimedAsync", true)
}

// TimedResult polls the timestamps of the last timed dispatch without
// blocking. ok is false while the GPU has not written both yet.
func (p *ComputeProgram) TimedResult() (elapsed time.Duration, ok bool, err error) {
	if err := p.checkBuilt("TimedResult"); err != nil {
		return 0, false, err
	}
	if err := p.checkTimestamps("TimedResult"); err != nil {
		return 0, false, err
	}

	// Pairs of (value, availability) per query.
	var raw [4]uint64
	result := vk.GetQueryPoolResults(p.Device.VKDevice, p.queryPool, 0, 2,
		uint(len(raw)*8), unsafe.Pointer(&raw[0]), 16,
		vk.QueryResultFlags(vk.QueryResult64Bit|vk.QueryResultWithAvailabilityBit))
	if result == vk.NotReady {
		return 0, false, nil
	}
	if err := vkCheck("vkGetQueryPoolResults", result); err != nil {
		return 0, false, err
	}
	if raw[1] == 0 || raw[3] == 0 {
		return 0, false, nil
	}
	return p.ticksToDuration(raw[0], raw[2]), true, nil
}

func (p *ComputeProgram) readTimestamps(wait bool) (time.Duration, error) {
	flags := vk.QueryResultFlags(vk.QueryResult64Bit)
	if wait {
		flags |= vk.QueryResultFlags(vk.QueryResultWaitBit)
	}
	var ticks [2]uint64
	result := vk.GetQueryPoolResults(p.Device.VKDevice, p.queryPool, 0, 2,
		uint(len(ticks)*8), unsafe.Pointer(&ticks[0]), 8, flags)
	if err := vkCheck("vkGetQueryPoolResults", result); err != nil {
		return 0, err
	}
	return p.ticksToDuration(ticks[0], ticks[1]), nil
}

func (p *ComputeProgram) ticksToDuration(start, end uint64) time.Duration {
	ns := float64(end-start) * float64(p.Device.Info.TimestampPeriod)
	return time.Duration(ns)
}
