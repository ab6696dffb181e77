package vkc

import (
	"errors"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func memType(flags vk.MemoryPropertyFlagBits) MemoryTypeInfo {
	return MemoryTypeInfo{PropertyFlags: vk.MemoryPropertyFlags(flags)}
}

func TestSelectMemory(t *testing.T) {
	info := &DeviceInfo{
		MemoryTypes: []MemoryTypeInfo{
			memType(vk.MemoryPropertyDeviceLocalBit),
			memType(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
			memType(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit),
		},
	}

	idx, err := info.SelectMemory(0xffffffff, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil || idx != 0 {
		t.Errorf("device local: got (%d, %v), want (0, nil)", idx, err)
	}

	idx, err = info.SelectMemory(0xffffffff,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil || idx != 1 {
		t.Errorf("host coherent: got (%d, %v), want (1, nil)", idx, err)
	}

	// Type bits exclude index 1, so the cached type must not leak through as
	// a coherent match.
	_, err = info.SelectMemory(0b101,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if !errors.Is(err, ErrNoSuitableMemoryType) {
		t.Errorf("masked type bits: got %v, want ErrNoSuitableMemoryType", err)
	}

	idx, err = info.SelectMemory(0b100, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil || idx != 2 {
		t.Errorf("host visible via bit 2: got (%d, %v), want (2, nil)", idx, err)
	}
}

func TestSelectMemoryNeverDropsFlags(t *testing.T) {
	info := &DeviceInfo{
		MemoryTypes: []MemoryTypeInfo{
			memType(vk.MemoryPropertyHostVisibleBit),
		},
	}
	_, err := info.SelectMemory(0xffffffff,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if !errors.Is(err, ErrNoSuitableMemoryType) {
		t.Errorf("got %v, want ErrNoSuitableMemoryType", err)
	}
}

func TestScoreDeviceType(t *testing.T) {
	order := []vk.PhysicalDeviceType{
		vk.PhysicalDeviceTypeDiscreteGpu,
		vk.PhysicalDeviceTypeIntegratedGpu,
		vk.PhysicalDeviceTypeVirtualGpu,
		vk.PhysicalDeviceTypeCpu,
		vk.PhysicalDeviceTypeOther,
	}
	for i := 1; i < len(order); i++ {
		if scoreDeviceType(order[i-1]) <= scoreDeviceType(order[i]) {
			t.Errorf("expected %v to outscore %v", order[i-1], order[i])
		}
	}
}

func TestPickDevice(t *testing.T) {
	candidates := []deviceCandidate{
		{index: 0, deviceType: vk.PhysicalDeviceTypeCpu, hasCompute: true},
		{index: 1, deviceType: vk.PhysicalDeviceTypeIntegratedGpu, hasCompute: true},
		{index: 2, deviceType: vk.PhysicalDeviceTypeDiscreteGpu, hasCompute: true},
	}

	idx, err := pickDevice(candidates, -1)
	if err != nil || idx != 2 {
		t.Errorf("scoring: got (%d, %v), want (2, nil)", idx, err)
	}

	idx, err = pickDevice(candidates, 0)
	if err != nil || idx != 0 {
		t.Errorf("preferred override: got (%d, %v), want (0, nil)", idx, err)
	}

	// Out-of-range preference falls back to scoring.
	idx, err = pickDevice(candidates, 7)
	if err != nil || idx != 2 {
		t.Errorf("invalid preference: got (%d, %v), want (2, nil)", idx, err)
	}
}

func TestPickDeviceSkipsNonCompute(t *testing.T) {
	candidates := []deviceCandidate{
		{index: 0, deviceType: vk.PhysicalDeviceTypeDiscreteGpu, hasCompute: false},
		{index: 1, deviceType: vk.PhysicalDeviceTypeCpu, hasCompute: true},
	}

	idx, err := pickDevice(candidates, -1)
	if err != nil || idx != 1 {
		t.Errorf("got (%d, %v), want (1, nil)", idx, err)
	}

	// Preferring a compute-less device falls through to scoring.
	idx, err = pickDevice(candidates, 0)
	if err != nil || idx != 1 {
		t.Errorf("preferred without compute: got (%d, %v), want (1, nil)", idx, err)
	}
}

func TestPickDeviceNoComputeAnywhere(t *testing.T) {
	candidates := []deviceCandidate{
		{index: 0, deviceType: vk.PhysicalDeviceTypeDiscreteGpu, hasCompute: false},
	}
	if _, err := pickDevice(candidates, -1); !errors.Is(err, ErrNoComputeQueue) {
		t.Errorf("got %v, want ErrNoComputeQueue", err)
	}
	if _, err := pickDevice(nil, -1); !errors.Is(err, ErrNoComputeQueue) {
		t.Errorf("empty candidates: got %v, want ErrNoComputeQueue", err)
	}
}
