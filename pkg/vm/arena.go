package vm

import "encoding/binary"

// align4 rounds n up to the next multiple of 4.
func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// Arena is a monotonically-growing, 4-byte-aligned byte region backing
// either the heap or the statics area (spec §3 "Heap and statics").
// Offsets handed out by Alloc* never move: Arena never compacts or
// frees, matching spec §1's no-GC non-goal.
type Arena struct {
	data []byte
}

// NewArena returns an empty arena. Offset 0 is never handed out by
// AllocZeroed/AllocString (a 0 offset only ever means "no object" inside
// a Value, since Value's own tag bits already distinguish null from a
// real reference -- reserving offset 0 keeps debugging dumps legible).
func NewArena() *Arena {
	return &Arena{data: make([]byte, 4)}
}

// Len returns the current size of the arena in bytes.
func (a *Arena) Len() uint32 { return uint32(len(a.data)) }

// AllocZeroed grows the arena by align4(n) zeroed bytes and returns the
// offset of the first byte.
func (a *Arena) AllocZeroed(n uint32) uint32 {
	offset := uint32(len(a.data))
	a.data = append(a.data, make([]byte, align4(n))...)
	return offset
}

// AllocString allocates a [4-byte length][UTF-8 bytes] record and
// returns its offset, grounded on original_source's
// Runtime::new_static_string_obj.
func (a *Arena) AllocString(s string) uint32 {
	offset := a.AllocZeroed(uint32(4 + len(s)))
	a.WriteU32(offset, uint32(len(s)))
	copy(a.data[offset+4:], s)
	return offset
}

// ReadString reads back a [4-byte length][UTF-8 bytes] record.
func (a *Arena) ReadString(offset uint32) string {
	n := a.ReadU32(offset)
	return string(a.data[offset+4 : offset+4+n])
}

func (a *Arena) ReadU8(offset uint32) uint8 { return a.data[offset] }

func (a *Arena) WriteU8(offset uint32, v uint8) { a.data[offset] = v }

func (a *Arena) ReadU16(offset uint32) uint16 {
	return binary.LittleEndian.Uint16(a.data[offset : offset+2])
}

func (a *Arena) WriteU16(offset uint32, v uint16) {
	binary.LittleEndian.PutUint16(a.data[offset:offset+2], v)
}

func (a *Arena) ReadU32(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(a.data[offset : offset+4])
}

func (a *Arena) WriteU32(offset uint32, v uint32) {
	binary.LittleEndian.PutUint32(a.data[offset:offset+4], v)
}

// ReadValue/WriteValue read and write a Value word at a byte offset.
func (a *Arena) ReadValue(offset uint32) Value { return Value(a.ReadU32(offset)) }

func (a *Arena) WriteValue(offset uint32, v Value) { a.WriteU32(offset, uint32(v)) }
