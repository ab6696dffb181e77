package vkc

import (
	"errors"
	"math"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestFallbackChain(t *testing.T) {
	chain := fallbackChain(HostAccessNone)
	if len(chain) != 1 || chain[0] != vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) {
		t.Fatalf("HostAccessNone chain = %v, want device local only", chain)
	}

	for _, access := range []HostAccess{HostAccessWrite, HostAccessRead, HostAccessReadWrite} {
		chain := fallbackChain(access)
		if len(chain) != 3 {
			t.Fatalf("%s chain has %d entries, want 3", access, len(chain))
		}
		coherent := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
		cached := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit)
		visible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
		if chain[0] != coherent || chain[1] != cached || chain[2] != visible {
			t.Fatalf("%s chain = %v, want coherent, cached, visible", access, chain)
		}
		// Every fallback step keeps host visibility.
		for i, flags := range chain {
			if flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
				t.Errorf("%s chain step %d lost host visibility", access, i)
			}
		}
	}
}

func TestValidateRange(t *testing.T) {
	b := &Buffer{Size: 1024}

	if err := b.validateRange("test", 0, 1024); err != nil {
		t.Errorf("full range: %v", err)
	}
	if err := b.validateRange("test", 512, 512); err != nil {
		t.Errorf("tail range: %v", err)
	}

	var rangeErr *RangeError
	if err := b.validateRange("test", 0, 0); !errors.As(err, &rangeErr) {
		t.Errorf("zero length: got %v, want RangeError", err)
	}
	if err := b.validateRange("test", 1024, 1); !errors.As(err, &rangeErr) {
		t.Errorf("offset at end: got %v, want RangeError", err)
	}
	if err := b.validateRange("test", 512, 513); !errors.As(err, &rangeErr) {
		t.Errorf("overflowing length: got %v, want RangeError", err)
	}

	// offset+length wrapping around uint64 must not slip past validation.
	if err := b.validateRange("test", math.MaxUint64-1, 2); !errors.As(err, &rangeErr) {
		t.Errorf("wrapping offset: got %v, want RangeError", err)
	}
	if err := b.validateRange("test", 1, math.MaxUint64); !errors.As(err, &rangeErr) {
		t.Errorf("wrapping length: got %v, want RangeError", err)
	}
}

func TestHostAccessModes(t *testing.T) {
	tests := []struct {
		access            HostAccess
		canWrite, canRead bool
	}{
		{HostAccessNone, false, false},
		{HostAccessWrite, true, false},
		{HostAccessRead, false, true},
		{HostAccessReadWrite, true, true},
	}
	for _, tt := range tests {
		if got := tt.access.canWrite(); got != tt.canWrite {
			t.Errorf("%s.canWrite() = %v, want %v", tt.access, got, tt.canWrite)
		}
		if got := tt.access.canRead(); got != tt.canRead {
			t.Errorf("%s.canRead() = %v, want %v", tt.access, got, tt.canRead)
		}
	}
}

func TestMapRejectsWrongDirection(t *testing.T) {
	b := &Buffer{Size: 256, Access: HostAccessWrite}

	var accessErr *AccessModeError
	if _, err := b.MapRead(0, 256); !errors.As(err, &accessErr) {
		t.Errorf("MapRead on write-only: got %v, want AccessModeError", err)
	}

	b = &Buffer{Size: 256, Access: HostAccessRead}
	if _, err := b.MapWrite(0, 256); !errors.As(err, &accessErr) {
		t.Errorf("MapWrite on read-only: got %v, want AccessModeError", err)
	}
}

func TestMapRejectsDestroyedBuffer(t *testing.T) {
	b := &Buffer{Size: 256, Access: HostAccessReadWrite, destroyed: true}

	var stateErr *StateError
	if _, err := b.MapWrite(0, 256); !errors.As(err, &stateErr) {
		t.Errorf("got %v, want StateError", err)
	}
}

func TestUsageClassFlags(t *testing.T) {
	// Storage buffers must be copy sources and destinations so Store and
	// Load can stage through them.
	flags := UsageStorage.bufferUsageFlags()
	want := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit |
		vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	if flags&want != want {
		t.Errorf("UsageStorage flags = %b, missing bits from %b", flags, want)
	}
}
