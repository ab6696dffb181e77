package vkc

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func spirvBytes(words ...uint32) []byte {
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	return data
}

func TestSpirvWords(t *testing.T) {
	words, err := spirvWords(spirvBytes(spirvMagic, 0x00010000, 0, 1, 0))
	if err != nil {
		t.Fatalf("spirvWords: %v", err)
	}
	if len(words) != 5 || words[0] != spirvMagic || words[1] != 0x00010000 {
		t.Errorf("decoded %#v", words)
	}

	var configErr *ConfigurationError
	if _, err := spirvWords([]byte{1, 2, 3}); !errors.As(err, &configErr) {
		t.Errorf("truncated binary: got %v, want ConfigurationError", err)
	}
}

func TestValidateSPIRV(t *testing.T) {
	if err := validateSPIRV([]uint32{spirvMagic, 0x00010000}); err != nil {
		t.Errorf("valid header rejected: %v", err)
	}

	var configErr *ConfigurationError
	if err := validateSPIRV(nil); !errors.As(err, &configErr) {
		t.Errorf("empty code: got %v, want ConfigurationError", err)
	}
	if err := validateSPIRV([]uint32{0xdeadbeef}); !errors.As(err, &configErr) {
		t.Errorf("wrong magic: got %v, want ConfigurationError", err)
	}
}

func TestLoadSPIRVFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.spv")
	if err := os.WriteFile(good, spirvBytes(spirvMagic, 0x00010000, 0, 1, 0), 0o644); err != nil {
		t.Fatal(err)
	}
	words, err := LoadSPIRVFile(good)
	if err != nil {
		t.Fatalf("LoadSPIRVFile: %v", err)
	}
	if words[0] != spirvMagic {
		t.Errorf("first word = %#x, want SPIR-V magic", words[0])
	}

	bad := filepath.Join(dir, "bad.spv")
	if err := os.WriteFile(bad, []byte("not aligned"), 0o644); err != nil {
		t.Fatal(err)
	}
	var configErr *ConfigurationError
	if _, err := LoadSPIRVFile(bad); !errors.As(err, &configErr) {
		t.Errorf("misaligned file: got %v, want ConfigurationError", err)
	}

	if _, err := LoadSPIRVFile(filepath.Join(dir, "missing.spv")); err == nil {
		t.Error("missing file: expected error")
	}
}
