package vkc

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Sentinel errors. All typed errors below can be matched with errors.As;
// these can be matched with errors.Is.
var (
	// ErrNoSuitableMemoryType indicates no entry of the device's memory-type
	// table satisfies both the type bitmask and the requested property flags.
	ErrNoSuitableMemoryType = errors.New("vkc: no suitable memory type")

	// ErrOutOfMemory indicates the allocation fallback chain was exhausted.
	ErrOutOfMemory = errors.New("vkc: out of device memory")

	// ErrNoComputeQueue indicates a physical device exposes no compute-capable
	// queue family. Device construction cannot proceed without one.
	ErrNoComputeQueue = errors.New("vkc: no compute queue family")

	// ErrTimeout indicates a bounded wait elapsed before the fence signaled.
	ErrTimeout = errors.New("vkc: wait timed out")

	// ErrNotReady indicates a non-blocking query found results not yet available.
	ErrNotReady = errors.New("vkc: not ready")
)

// DriverError is an opaque failure code returned by the Vulkan driver,
// annotated with the call that produced it.
type DriverError struct {
	Op     string
	Result vk.Result
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("vkc: %s: vulkan result %d", e.Op, int32(e.Result))
}

// vkCheck converts a vk.Result into a *DriverError carrying call-site context.
func vkCheck(op string, result vk.Result) error {
	if result == vk.Success {
		return nil
	}
	return &DriverError{Op: op, Result: result}
}

// ConfigurationError reports an invalid size, alignment or workgroup value.
// It is always raised before any irreversible GPU call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "vkc: invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// RangeError reports a buffer access that is zero-length or out of bounds.
type RangeError struct {
	Op     string
	Offset uint64
	Len    uint64
	Size   uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("vkc: %s out of bounds: offset=%d len=%d size=%d", e.Op, e.Offset, e.Len, e.Size)
}

// AccessModeError reports a host mapping in a direction the buffer's
// host-access mode does not permit.
type AccessModeError struct {
	Op   string
	Mode HostAccess
}

func (e *AccessModeError) Error() string {
	return fmt.Sprintf("vkc: %s not permitted by host-access mode %s", e.Op, e.Mode)
}

// StateError reports an operation invoked before initialization completed or
// after teardown.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("vkc: %s invoked while %s", e.Op, e.State)
}
