package vkc

import (
	"unsafe"
)

// MappedRegion is a scoped host view of a buffer range. The pointer exposed
// through Bytes starts at the offset the caller asked for; the mapping
// underneath covers the aligned superset required by the device's
// non-coherent atom size. A region never outlives its Buffer and must be
// released exactly once; Release on a write mapping flushes before unmapping.
type MappedRegion struct {
	buffer *Buffer
	base   unsafe.Pointer

	offset uint64
	length uint64

	alignedOffset uint64
	alignedLen    uint64

	write    bool
	released bool
}

// Bytes returns the mapped window as a byte slice, exactly the range the
// caller requested. The slice is invalid after Release.
func (m *MappedRegion) Bytes() []byte {
	shifted := unsafe.Pointer(uintptr(m.base) + uintptr(m.offset-m.alignedOffset))
	return ToBytes(shifted, int(m.length))
}

// Len returns the requested length in bytes.
func (m *MappedRegion) Len() uint64 {
	return m.length
}

// AlignedBounds returns the offset and length of the range actually mapped,
// after expansion to the non-coherent atom size.
func (m *MappedRegion) AlignedBounds() (offset, length uint64) {
	return m.alignedOffset, m.alignedLen
}

// IsWrite reports whether the region was mapped for writing.
func (m *MappedRegion) IsWrite() bool {
	return m.write
}

// Release ends the mapping. Write mappings flush the aligned range first,
// which is a no-op on coherent memory. Release is idempotent.
func (m *MappedRegion) Release() error {
	if m.released {
		return nil
	}
	m.released = true

	var err error
	if m.write && !m.buffer.Coherent {
		err = m.buffer.Memory.Flush(m.alignedOffset, m.alignedLen)
	}
	m.buffer.Memory.Unmap()
	return err
}
