package vkc

import (
	"encoding/binary"
	"errors"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func validCode() []uint32 {
	return []uint32{spirvMagic, 0x00010000, 0, 1, 0}
}

func TestValidateConfig(t *testing.T) {
	info := testDeviceInfo()
	buf := &Buffer{Size: 4096}

	good := ProgramConfig{
		Code:          validCode(),
		Bindings:      []BufferBinding{storageBinding(0, 0, buf)},
		WorkgroupSize: [3]uint32{64, 1, 1},
	}
	if err := validateConfig(info, &good); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	var configErr *ConfigurationError

	bad := good
	bad.Code = []uint32{0xdeadbeef}
	if err := validateConfig(info, &bad); !errors.As(err, &configErr) {
		t.Errorf("bad SPIR-V: got %v, want ConfigurationError", err)
	}

	bad = good
	bad.WorkgroupSize = [3]uint32{2048, 1, 1}
	if err := validateConfig(info, &bad); !errors.As(err, &configErr) {
		t.Errorf("oversized axis: got %v, want ConfigurationError", err)
	}

	// Each axis within its limit but the product over the invocation cap.
	bad = good
	bad.WorkgroupSize = [3]uint32{64, 64, 1}
	if err := validateConfig(info, &bad); !errors.As(err, &configErr) {
		t.Errorf("invocation product: got %v, want ConfigurationError", err)
	}

	bad = good
	bad.PushConstantSize = 6
	if err := validateConfig(info, &bad); !errors.As(err, &configErr) {
		t.Errorf("unaligned push constants: got %v, want ConfigurationError", err)
	}

	bad = good
	bad.PushConstantSize = 256
	if err := validateConfig(info, &bad); !errors.As(err, &configErr) {
		t.Errorf("oversized push constants: got %v, want ConfigurationError", err)
	}

	bad = good
	bad.Bindings = []BufferBinding{storageBinding(0, 0, nil)}
	if err := validateConfig(info, &bad); !errors.As(err, &configErr) {
		t.Errorf("bad binding: got %v, want ConfigurationError", err)
	}
}

func TestWorkgroupSizeDefaults(t *testing.T) {
	c := ProgramConfig{Code: validCode()}
	if wg := c.workgroupSize(); wg != [3]uint32{1, 1, 1} {
		t.Errorf("zero size defaults to %v, want [1 1 1]", wg)
	}
	c.WorkgroupSize = [3]uint32{64, 0, 1}
	if wg := c.workgroupSize(); wg != [3]uint32{64, 1, 1} {
		t.Errorf("partial size defaults to %v, want [64 1 1]", wg)
	}
	if c.entryPoint() != "main" {
		t.Errorf("entry point defaults to %q, want main", c.entryPoint())
	}
}

func TestSpecializationInfoLayout(t *testing.T) {
	c := ProgramConfig{
		Code:               validCode(),
		WorkgroupSize:      [3]uint32{64, 2, 1},
		LocalMemoryLengths: map[uint32]uint32{0: 256, 2: 16},
	}
	si := specializationInfo(&c)

	// IDs 0..2 plus keys 0 and 2 mapped to IDs 3 and 5; data covers ID 5.
	if si.MapEntryCount != 5 {
		t.Fatalf("entry count = %d, want 5", si.MapEntryCount)
	}
	if si.DataSize != 24 {
		t.Fatalf("data size = %d, want 24", si.DataSize)
	}

	data := ToBytes(si.PData, int(si.DataSize))
	wordAt := func(id uint32) uint32 {
		return binary.LittleEndian.Uint32(data[id*4:])
	}
	if wordAt(0) != 64 || wordAt(1) != 2 || wordAt(2) != 1 {
		t.Errorf("workgroup words = [%d %d %d], want [64 2 1]", wordAt(0), wordAt(1), wordAt(2))
	}
	if wordAt(3) != 256 {
		t.Errorf("local memory id 3 = %d, want 256", wordAt(3))
	}
	if wordAt(5) != 16 {
		t.Errorf("local memory id 5 = %d, want 16", wordAt(5))
	}

	for _, e := range si.PMapEntries {
		if e.Offset != e.ConstantID*4 || e.Size != 4 {
			t.Errorf("entry id %d at offset %d size %d, want offset %d size 4",
				e.ConstantID, e.Offset, e.Size, e.ConstantID*4)
		}
	}
}

func testProgram() *ComputeProgram {
	return &ComputeProgram{
		Device:   &Device{Info: testDeviceInfo()},
		groups:   [3]uint32{1, 1, 1},
		pushData: make([]byte, 16),
	}
}

func TestSetWorkgroups(t *testing.T) {
	p := testProgram()

	if err := p.SetWorkgroups(256, 2, 1); err != nil {
		t.Fatalf("valid dimensions rejected: %v", err)
	}
	if x, y, z := p.Workgroups(); x != 256 || y != 2 || z != 1 {
		t.Errorf("Workgroups() = (%d, %d, %d), want (256, 2, 1)", x, y, z)
	}

	var configErr *ConfigurationError
	if err := p.SetWorkgroups(0, 1, 1); !errors.As(err, &configErr) {
		t.Errorf("zero axis: got %v, want ConfigurationError", err)
	}
	if err := p.SetWorkgroups(1, 1, 100000); !errors.As(err, &configErr) {
		t.Errorf("over device limit: got %v, want ConfigurationError", err)
	}

	// A rejected call leaves the previous dimensions untouched.
	if x, y, z := p.Workgroups(); x != 256 || y != 2 || z != 1 {
		t.Errorf("dimensions changed on rejection: (%d, %d, %d)", x, y, z)
	}
}

func TestSetPushConstants(t *testing.T) {
	p := testProgram()

	if n := p.SetPushConstants(0, []byte{1, 2, 3, 4}); n != 4 {
		t.Errorf("wrote %d bytes, want 4", n)
	}
	if p.pushData[0] != 1 || p.pushData[3] != 4 {
		t.Errorf("push data not stored: %v", p.pushData[:4])
	}

	// Writes past capacity are clamped, never grown.
	if n := p.SetPushConstants(12, []byte{9, 9, 9, 9, 9, 9}); n != 4 {
		t.Errorf("clamped write = %d bytes, want 4", n)
	}
	if n := p.SetPushConstants(16, []byte{1}); n != 0 {
		t.Errorf("write at capacity = %d bytes, want 0", n)
	}
	if len(p.pushData) != 16 {
		t.Errorf("push block grew to %d bytes", len(p.pushData))
	}
}

func TestDispatchRequiresBuiltProgram(t *testing.T) {
	p := testProgram()

	var stateErr *StateError
	if err := p.Dispatch(); !errors.As(err, &stateErr) {
		t.Errorf("Dispatch on unbuilt program: got %v, want StateError", err)
	}
	if _, err := p.DispatchAsync(); !errors.As(err, &stateErr) {
		t.Errorf("DispatchAsync on unbuilt program: got %v, want StateError", err)
	}
	if _, err := p.DispatchTimed(); !errors.As(err, &stateErr) {
		t.Errorf("DispatchTimed on unbuilt program: got %v, want StateError", err)
	}
}

func TestTimedDispatchRequiresTimestamps(t *testing.T) {
	p := testProgram()
	p.stage = stageBuilt
	p.Device.TimestampsSupported = false

	var stateErr *StateError
	if _, err := p.DispatchTimed(); !errors.As(err, &stateErr) {
		t.Errorf("got %v, want StateError", err)
	}
	if _, _, err := p.TimedResult(); !errors.As(err, &stateErr) {
		t.Errorf("TimedResult: got %v, want StateError", err)
	}
}

func TestTeardownKeyedOnCreatedObjects(t *testing.T) {
	// A build can fail partway through a step, leaving objects tracked while
	// the stage counter still names the previous step. Teardown must go by
	// what exists, not by how far the stage counter got.
	p := testProgram()
	p.stage = stageShader
	p.setLayouts = []*DescriptorSetLayout{}

	p.destroyToStage(stageNone)

	if p.setLayouts != nil {
		t.Error("set layout bookkeeping not cleared")
	}
	if p.stage != stageNone {
		t.Errorf("stage = %d after teardown, want stageNone", p.stage)
	}
}

func TestTeardownIdempotent(t *testing.T) {
	p := testProgram()
	// Nothing was built, so repeated teardown must be a no-op.
	p.Teardown()
	p.Teardown()
	if p.stage != stageNone {
		t.Errorf("stage = %d after teardown, want stageNone", p.stage)
	}
}

func TestDescriptorPoolSizing(t *testing.T) {
	buf := &Buffer{Size: 4096}
	bindings := []BufferBinding{
		storageBinding(0, 0, buf),
		storageBinding(1, 0, buf),
		{Set: 1, Binding: 1, Type: vk.DescriptorTypeUniformBuffer, Buffer: buf, Offset: 256},
	}
	groups := groupBindingsBySet(bindings)
	if len(groups) != 2 {
		t.Fatalf("got %d set groups, want 2", len(groups))
	}
	counts := descriptorCounts(bindings)
	if counts[vk.DescriptorTypeStorageBuffer] != 2 || counts[vk.DescriptorTypeUniformBuffer] != 1 {
		t.Errorf("pool sizing counts = %v", counts)
	}
}
