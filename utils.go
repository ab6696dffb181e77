package vkc

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// ToBytes will take an unsafe.Pointer and length in bytes and convert it
// to a byte slice
func ToBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	const m = 0x7fffffff
	return (*[m]byte)(ptr)[:lenInBytes]
}

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	for i := range list {
		list[i] = safeString(list[i])
	}
	return list
}

func alignDown(v uint64, align uint64) uint64 {
	return v - v%align
}

func alignUp(v uint64, align uint64) uint64 {
	m := v % align
	if m == 0 {
		return v
	}
	return (v - m) + align
}

// alignedRange expands [offset, offset+length) to the smallest range whose
// bounds are multiples of atom and which still contains the request, then
// clamps the end to size. Vulkan permits a flush/invalidate range to end at
// the allocation size even when that is not an atom multiple. Requests that
// reach past size, including ones whose end wraps around uint64, are clamped
// to the buffer rather than producing bounds outside it.
func alignedRange(offset, length, atom, size uint64) (alignedOffset, alignedLen uint64) {
	if atom == 0 {
		atom = 1
	}
	if offset > size {
		offset = size
	}
	if length > size-offset {
		length = size - offset
	}
	start := alignDown(offset, atom)
	stop := alignUp(offset+length, atom)
	if stop < offset+length || stop > size {
		stop = size
	}
	return start, stop - start
}
