package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ComputePipeline wraps a compute pipeline built from exactly one shader stage.
type ComputePipeline struct {
	Device                          *Device
	VKPipeline                      vk.Pipeline
	VKPipelineShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
	VKPipelineLayout                vk.PipelineLayout
}

func (d *Device) NewComputePipeline() *ComputePipeline {
	return &ComputePipeline{Device: d}
}

func (cp *ComputePipeline) SetPipelineLayout(layout *PipelineLayout) {
	cp.VKPipelineLayout = layout.VKPipelineLayout
}

// SetShaderStage sets the compute entry point. specInfo may be nil when the
// shader declares no specialization constants.
func (cp *ComputePipeline) SetShaderStage(entryPoint string, module *ShaderModule, specInfo *vk.SpecializationInfo) {
	var spec []vk.SpecializationInfo
	if specInfo != nil {
		spec = []vk.SpecializationInfo{*specInfo}
	}
	cp.VKPipelineShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:               vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:               vk.ShaderStageComputeBit,
		Module:              module.VKShaderModule,
		PName:               safeString(entryPoint),
		PSpecializationInfo: spec,
	}
}

// CreateComputePipelines creates the pipeline object. Call after the layout and
// shader stage are set.
func (cp *ComputePipeline) CreateComputePipelines() error {
	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  cp.VKPipelineShaderStageCreateInfo,
		Layout: cp.VKPipelineLayout,
	}

	pipelines := make([]vk.Pipeline, 1)
	result := vk.CreateComputePipelines(cp.Device.VKDevice, vk.NullPipelineCache, 1,
		[]vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines)
	if err := vkCheck("vkCreateComputePipelines", result); err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}

	cp.VKPipeline = pipelines[0]
	return nil
}

func (cp *ComputePipeline) Destroy() {
	vk.DestroyPipeline(cp.Device.VKDevice, cp.VKPipeline, nil)
}
