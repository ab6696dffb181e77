package vkc

import (
	"errors"
	"strings"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestVkCheck(t *testing.T) {
	if err := vkCheck("vkAnything", vk.Success); err != nil {
		t.Errorf("success mapped to %v", err)
	}

	err := vkCheck("vkCreateBuffer", vk.ErrorOutOfDeviceMemory)
	var drvErr *DriverError
	if !errors.As(err, &drvErr) {
		t.Fatalf("got %T, want DriverError", err)
	}
	if drvErr.Op != "vkCreateBuffer" || drvErr.Result != vk.ErrorOutOfDeviceMemory {
		t.Errorf("DriverError = %+v", drvErr)
	}
	if !strings.Contains(err.Error(), "vkCreateBuffer") {
		t.Errorf("message %q should name the call", err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	rangeErr := &RangeError{Op: "Store", Offset: 10, Len: 20, Size: 16}
	for _, want := range []string{"Store", "offset=10", "len=20", "size=16"} {
		if !strings.Contains(rangeErr.Error(), want) {
			t.Errorf("%q missing %q", rangeErr.Error(), want)
		}
	}

	accessErr := &AccessModeError{Op: "MapRead", Mode: HostAccessWrite}
	if !strings.Contains(accessErr.Error(), "write") {
		t.Errorf("%q should name the mode", accessErr.Error())
	}

	if !strings.Contains(configErrorf("bad size %d", 7).Error(), "bad size 7") {
		t.Error("configErrorf lost formatting")
	}
}

func TestSubmitHandleConsumedOnce(t *testing.T) {
	h := &SubmitHandle{done: true}

	var stateErr *StateError
	if err := h.Wait(0); !errors.As(err, &stateErr) {
		t.Errorf("Wait on consumed handle: got %v, want StateError", err)
	}
	if err := h.Poll(); !errors.As(err, &stateErr) {
		t.Errorf("Poll on consumed handle: got %v, want StateError", err)
	}
	if !h.Done() {
		t.Error("Done() = false on consumed handle")
	}
}
