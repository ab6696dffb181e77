package vkc

import (
	"encoding/binary"
	"os"

	vk "github.com/vulkan-go/vulkan"
)

// spirvMagic is the fixed first word of every SPIR-V module.
const spirvMagic = 0x07230203

// LoadSPIRVFile reads a SPIR-V binary into its 32-bit word sequence. Files
// whose byte length is not a multiple of 4 are rejected; deeper validation is
// the shader compiler's job.
func LoadSPIRVFile(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return spirvWords(data)
}

func spirvWords(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, configErrorf("SPIR-V binary length %d is not a multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

// validateSPIRV checks the word sequence is non-empty and carries the SPIR-V
// magic number. Called before any GPU object is created from the code.
func validateSPIRV(words []uint32) error {
	if len(words) == 0 {
		return configErrorf("SPIR-V code is empty")
	}
	if words[0] != spirvMagic {
		return configErrorf("SPIR-V magic mismatch: got 0x%08x want 0x%08x", words[0], uint32(spirvMagic))
	}
	return nil
}

type ShaderModule struct {
	Device         *Device
	VKShaderModule vk.ShaderModule
}

// CreateShaderModule builds a shader module from validated SPIR-V words.
func (d *Device) CreateShaderModule(words []uint32) (*ShaderModule, error) {
	if err := validateSPIRV(words); err != nil {
		return nil, err
	}

	var module vk.ShaderModule
	err := vkCheck("vkCreateShaderModule", vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(words) * 4),
		PCode:    words,
	}, nil, &module))
	if err != nil {
		return nil, err
	}

	return &ShaderModule{Device: d, VKShaderModule: module}, nil
}

// LoadShaderModuleFromFile reads a SPIR-V file and builds a module from it.
func (d *Device) LoadShaderModuleFromFile(file string) (*ShaderModule, error) {
	words, err := LoadSPIRVFile(file)
	if err != nil {
		return nil, err
	}
	return d.CreateShaderModule(words)
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}
