package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PipelineLayout describes the descriptor set layouts and push constant ranges
// a pipeline consumes.
type PipelineLayout struct {
	Device           *Device
	VKPipelineLayout vk.PipelineLayout
}

// CreatePipelineLayout creates a pipeline layout from descriptor set layouts
// with no push constant block.
func (d *Device) CreatePipelineLayout(setLayouts []*DescriptorSetLayout) (*PipelineLayout, error) {
	return d.CreatePipelineLayoutWithPushConstants(setLayouts, nil)
}

// CreatePipelineLayoutWithPushConstants creates a pipeline layout from
// descriptor set layouts and explicit push constant ranges.
func (d *Device) CreatePipelineLayoutWithPushConstants(setLayouts []*DescriptorSetLayout, pushRanges []vk.PushConstantRange) (*PipelineLayout, error) {
	vkLayouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, l := range setLayouts {
		vkLayouts[i] = l.VKDescriptorSetLayout
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(vkLayouts)),
		PSetLayouts:            vkLayouts,
		PushConstantRangeCount: uint32(len(pushRanges)),
		PPushConstantRanges:    pushRanges,
	}

	var layout vk.PipelineLayout
	if err := vkCheck("vkCreatePipelineLayout", vk.CreatePipelineLayout(d.VKDevice, &createInfo, nil, &layout)); err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	return &PipelineLayout{
		Device:           d,
		VKPipelineLayout: layout,
	}, nil
}

func (pl *PipelineLayout) Destroy() {
	vk.DestroyPipelineLayout(pl.Device.VKDevice, pl.VKPipelineLayout, nil)
}
