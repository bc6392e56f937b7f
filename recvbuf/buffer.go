// Package recvbuf implements a stream receive reassembly buffer: it accepts
// out-of-order byte ranges of a single unidirectional stream, reassembles
// them into contiguous readable regions, and bounds memory against an
// advertised flow-control window.
//
// The buffer is not safe for concurrent use. Callers must serialize all
// method calls per stream; the buffer performs no internal locking.
package recvbuf

import (
	"math"

	"github.com/mel2oo/quicbuf/memview"
	"github.com/mel2oo/quicbuf/rangeset"
	"github.com/pkg/errors"
)

// Stats is a read-only diagnostic snapshot of a Buffer's accounting
// counters. It is not a metrics-export mechanism; callers poll it.
type Stats struct {
	TotalWritten uint64
	TotalDrained uint64
	ChunkCount   int
	RangeCount   int
}

// Buffer is a stream receive reassembly buffer. See the package doc for the
// concurrency contract. The zero value is not usable; construct with
// NewBuffer.
type Buffer struct {
	mode Mode

	baseOffset          uint64
	virtualBufferLength uint32
	capacity            uint32
	readStart           uint32
	readLength          uint32
	readPendingLength   uint32

	chunks       []*Chunk
	retiredChunk *Chunk

	writtenRanges *rangeset.Set[uint64]

	allocator ChunkAllocator

	stats Stats
}

// NewBuffer constructs a Buffer per opt. In non-app-owned modes,
// Options.AllocLength and Options.VirtualLength must both be nonzero powers
// of two with AllocLength <= VirtualLength.
func NewBuffer(opt ...Option) (*Buffer, error) {
	opts := NewOptions()
	for _, o := range opt {
		o(&opts)
	}

	maxEntries := opts.MaxRangeEntries
	if maxEntries == 0 {
		maxEntries = DefaultMaxRangeEntries
	}

	b := &Buffer{
		mode:          opts.Mode,
		writtenRanges: rangeset.New[uint64](maxEntries),
		allocator:     opts.ChunkAllocator,
	}

	if opts.Mode == ModeAppOwned {
		return b, nil
	}

	if opts.AllocLength == 0 || opts.VirtualLength == 0 {
		return nil, errors.Wrap(ErrInvalidParameter, "alloc length and virtual length must be nonzero")
	}
	if !isPowerOfTwo(opts.AllocLength) || !isPowerOfTwo(opts.VirtualLength) {
		return nil, errors.Wrap(ErrInvalidParameter, "alloc length and virtual length must be powers of two")
	}
	if opts.AllocLength > opts.VirtualLength {
		return nil, errors.Wrap(ErrInvalidParameter, "alloc length must not exceed virtual length")
	}

	chunk := opts.PreallocatedChunk
	if chunk == nil {
		chunk = b.newChunk(opts.AllocLength)
	}
	b.chunks = append(b.chunks, chunk)
	b.capacity = opts.AllocLength
	b.virtualBufferLength = opts.VirtualLength

	return b, nil
}

// Mode returns the buffer's immutable storage mode.
func (b *Buffer) Mode() Mode { return b.mode }

// BaseOffset returns the absolute stream offset of byte 0 of the buffer's
// current logical window. Monotonically non-decreasing.
func (b *Buffer) BaseOffset() uint64 { return b.baseOffset }

// VirtualBufferLength returns the byte budget beyond BaseOffset that the
// peer is currently allowed to send.
func (b *Buffer) VirtualBufferLength() uint32 { return b.virtualBufferLength }

// Stats returns a snapshot of the buffer's diagnostic counters.
func (b *Buffer) Stats() Stats {
	s := b.stats
	s.ChunkCount = len(b.chunks)
	s.RangeCount = b.writtenRanges.Size()
	return s
}

// HasUnreadData reports whether there is contiguous data from BaseOffset
// that has not yet been handed out via Read.
func (b *Buffer) HasUnreadData() bool {
	r, ok := b.writtenRanges.GetSafe(0)
	if !ok || r.Low != 0 {
		return false
	}
	contiguous := r.High() - b.baseOffset
	return contiguous > uint64(b.readPendingLength)
}

// totalLength returns one past the highest absolute offset ever observed as
// written, or 0 if nothing has been written.
func (b *Buffer) totalLength() uint64 {
	max, ok := b.writtenRanges.GetMaxSafe()
	if !ok {
		return 0
	}
	invariant(max >= b.baseOffset, "total length below base offset")
	return max
}

// span returns the minimum contiguous allocation needed to hold everything
// observed so far, including gaps.
func (b *Buffer) span() uint32 {
	return uint32(b.totalLength() - b.baseOffset)
}

// totalAllocLength returns the total physical allocation currently
// available to hold incoming data, per §4.3 step 4 / totalAllocLength.
func (b *Buffer) totalAllocLength() uint32 {
	if len(b.chunks) == 0 {
		return 0
	}
	if b.mode == ModeSingle || b.mode == ModeCircular {
		return b.chunks[len(b.chunks)-1].AllocLength()
	}
	if b.mode == ModeMultiple && len(b.chunks) == 1 {
		return b.chunks[0].AllocLength()
	}
	total := b.capacity
	for _, c := range b.chunks[1:] {
		total += c.AllocLength()
	}
	return total
}

// ProvideChunks appends caller-owned chunks to the tail (app-owned mode
// only). See §4.2.
func (b *Buffer) ProvideChunks(chunks []*Chunk) error {
	if b.mode != ModeAppOwned {
		return errors.Wrap(ErrInvalidParameter, "provide_chunks is only valid in app-owned mode")
	}
	if len(chunks) == 0 {
		return errors.Wrap(ErrInvalidParameter, "provide_chunks requires at least one chunk")
	}

	newLength := uint64(b.virtualBufferLength)
	for _, c := range chunks {
		newLength += uint64(c.AllocLength())
	}
	if newLength > math.MaxUint32 {
		return errors.Wrap(ErrInvalidParameter, "resulting virtual buffer length exceeds 32-bit range")
	}

	if len(b.chunks) == 0 {
		invariant(b.readStart == 0, "empty app-owned buffer must have zero read start")
		invariant(b.readLength == 0, "empty app-owned buffer must have zero read length")
		b.capacity = chunks[0].AllocLength()
	}

	b.virtualBufferLength = uint32(newLength)
	b.chunks = append(b.chunks, chunks...)
	return nil
}

// resize allocates a new last chunk of targetLength and migrates live data
// into it per §4.5. Returns false only on allocation failure, in which case
// no visible state has changed; Go's allocator does not fail synchronously
// for the sizes this package deals with, so this always returns true, but
// the boolean return is kept to mirror the documented contract.
func (b *Buffer) resize(targetLength uint32) bool {
	invariant(b.mode != ModeAppOwned, "resize must never be called in app-owned mode")
	invariant(isPowerOfTwo(targetLength), "resize target %d is not a power of two", targetLength)
	invariant(len(b.chunks) > 0, "resize called with no chunks")

	last := b.chunks[len(b.chunks)-1]
	invariant(targetLength > last.AllocLength(), "resize target must exceed the last chunk's alloc length")
	lastIsFirst := len(b.chunks) == 1

	newChunk := b.newChunk(targetLength)

	if !last.ExternalReference {
		if lastIsFirst {
			span := b.span()
			if span < last.AllocLength() {
				span = last.AllocLength()
			}
			lengthTillWrap := last.AllocLength() - b.readStart
			if span <= lengthTillWrap {
				copy(newChunk.Buffer, last.Buffer[b.readStart:b.readStart+span])
			} else {
				copy(newChunk.Buffer, last.Buffer[b.readStart:])
				copy(newChunk.Buffer[lengthTillWrap:], last.Buffer[:span-lengthTillWrap])
			}
			b.readStart = 0
			b.capacity = newChunk.AllocLength()
		} else {
			copy(newChunk.Buffer, last.Buffer)
		}
		b.chunks[len(b.chunks)-1] = newChunk
		b.releaseChunk(last)
		return true
	}

	if b.mode == ModeMultiple {
		b.chunks = append(b.chunks, newChunk)
		return true
	}

	// single/circular, last (== first) chunk externally referenced: retire it.
	span := b.span()
	lengthTillWrap := last.AllocLength() - b.readStart
	if span <= lengthTillWrap {
		copy(newChunk.Buffer, last.Buffer[b.readStart:b.readStart+span])
	} else {
		copy(newChunk.Buffer, last.Buffer[b.readStart:])
		copy(newChunk.Buffer[lengthTillWrap:], last.Buffer[:span-lengthTillWrap])
	}
	b.readStart = 0
	b.capacity = newChunk.AllocLength()
	invariant(b.retiredChunk == nil, "retired chunk slot already occupied")
	b.retiredChunk = last
	b.chunks[len(b.chunks)-1] = newChunk
	return true
}

// copyIntoChunks writes data (already validated to land within the buffer's
// window) into the correct chunk(s), per §4.4.
func (b *Buffer) copyIntoChunks(writeOffset uint64, data []byte) {
	if writeOffset < b.baseOffset {
		diff := b.baseOffset - writeOffset
		writeOffset += diff
		data = data[diff:]
	}
	length := uint32(len(data))
	if length == 0 {
		return
	}

	if b.mode == ModeSingle || b.mode == ModeCircular {
		chunk := b.chunks[0]
		relativeOffset := writeOffset - b.baseOffset
		chunkOffset := uint32((uint64(b.readStart) + relativeOffset) % uint64(chunk.AllocLength()))

		if chunkOffset+length > chunk.AllocLength() {
			part1 := chunk.AllocLength() - chunkOffset
			copy(chunk.Buffer[chunkOffset:], data[:part1])
			copy(chunk.Buffer, data[part1:])
		} else {
			copy(chunk.Buffer[chunkOffset:chunkOffset+length], data)
		}

		r := b.writtenRanges.Get(0)
		b.readLength = uint32(r.High() - b.baseOffset)
		return
	}

	// multiple / app_owned: data may span several chunks.
	chunkIdx := 0
	chunk := b.chunks[chunkIdx]
	isFirstChunk := true
	relativeOffset := writeOffset - b.baseOffset
	chunkOffset := uint64(b.readStart)
	var chunkLength uint32

	if b.mode == ModeMultiple && len(b.chunks) == 1 {
		chunkLength = chunk.AllocLength()
		r := b.writtenRanges.Get(0)
		b.readLength = uint32(r.High() - b.baseOffset)
	} else {
		chunkLength = b.capacity
		if relativeOffset < uint64(b.capacity) {
			r := b.writtenRanges.Get(0)
			b.readLength = uint32(r.High() - b.baseOffset)
			if b.capacity < b.readLength {
				b.readLength = b.capacity
			}
		} else {
			for uint64(chunkLength) <= relativeOffset {
				relativeOffset -= uint64(chunkLength)
				isFirstChunk = false
				chunkIdx++
				chunk = b.chunks[chunkIdx]
				chunkLength = chunk.AllocLength()
			}
		}
	}

	isFirstLoop := true
	for {
		var chunkWriteOffset uint32
		switch {
		case !isFirstLoop:
			chunkWriteOffset = 0
		case isFirstChunk:
			chunkWriteOffset = uint32((chunkOffset + relativeOffset) % uint64(chunk.AllocLength()))
		default:
			chunkWriteOffset = uint32(relativeOffset)
		}

		chunkWriteLength := length
		if isFirstChunk {
			if uint64(b.capacity) < relativeOffset+uint64(chunkWriteLength) {
				chunkWriteLength = b.capacity - uint32(relativeOffset)
			}
			if chunk.AllocLength() < chunkWriteOffset+chunkWriteLength {
				invariant(b.mode != ModeAppOwned, "app-owned mode capacity should never wrap")
				part1 := chunk.AllocLength() - chunkWriteOffset
				copy(chunk.Buffer[chunkWriteOffset:], data[:part1])
				copy(chunk.Buffer, data[part1:chunkWriteLength])
			} else {
				copy(chunk.Buffer[chunkWriteOffset:chunkWriteOffset+chunkWriteLength], data[:chunkWriteLength])
			}
		} else {
			if chunkWriteOffset+chunkWriteLength >= chunkLength {
				chunkWriteLength = chunkLength - chunkWriteOffset
			}
			copy(chunk.Buffer[chunkWriteOffset:chunkWriteOffset+chunkWriteLength], data[:chunkWriteLength])
		}

		if length == chunkWriteLength {
			break
		}
		data = data[chunkWriteLength:]
		length -= chunkWriteLength
		chunkIdx++
		chunk = b.chunks[chunkIdx]
		chunkOffset = 0
		chunkLength = chunk.AllocLength()
		isFirstChunk = false
		isFirstLoop = false
	}
}

// Write admits [writeOffset, writeOffset+len(data)) into the buffer. On
// entry *writeLimit bounds how many *new* bytes (beyond what has already
// been observed) this call may admit; on return it is updated to the number
// of new bytes actually admitted. See §4.3.
func (b *Buffer) Write(writeOffset uint64, data []byte, writeLimit *uint64) (readyToRead bool, err error) {
	length := uint64(len(data))
	if length == 0 {
		return false, errors.Wrap(ErrInvalidParameter, "write length must be nonzero")
	}
	if length > math.MaxUint32 {
		return false, errors.Wrap(ErrInvalidParameter, "write length exceeds 32-bit range")
	}

	absoluteLength := writeOffset + length
	if absoluteLength < writeOffset {
		return false, errors.Wrap(ErrInvalidParameter, "write_offset+length overflows")
	}

	if absoluteLength <= b.baseOffset {
		// Entirely duplicate of already-drained data.
		*writeLimit = 0
		return false, nil
	}

	if absoluteLength > b.baseOffset+uint64(b.virtualBufferLength) {
		return false, ErrBufferTooSmall
	}

	currentMaxLength := b.totalLength()
	if absoluteLength > currentMaxLength {
		if absoluteLength-currentMaxLength > *writeLimit {
			return false, ErrBufferTooSmall
		}
		*writeLimit = absoluteLength - currentMaxLength
	} else {
		*writeLimit = 0
	}

	if b.mode != ModeAppOwned {
		allocLength := b.totalAllocLength()
		if absoluteLength > b.baseOffset+uint64(allocLength) {
			newBufferLength := b.chunks[len(b.chunks)-1].AllocLength() << 1
			for absoluteLength > b.baseOffset+uint64(newBufferLength) {
				newBufferLength <<= 1
			}
			if !b.resize(newBufferLength) {
				return false, ErrOutOfMemory
			}
		}
	}

	updatedRange, changed, ok := b.writtenRanges.Add(writeOffset, length)
	if !ok {
		return false, ErrOutOfMemory
	}
	if !changed {
		return false, nil
	}

	readyToRead = updatedRange.Low == 0
	b.copyIntoChunks(writeOffset, data)
	b.stats.TotalWritten += length
	b.repOk()
	return readyToRead, nil
}

// BuffersNeeded returns the number of buffer descriptors the next Read call
// would need. See §4.8.
func (b *Buffer) BuffersNeeded() int {
	switch b.mode {
	case ModeSingle:
		return 1
	case ModeCircular:
		return 2
	case ModeMultiple:
		return 3
	}

	r, ok := b.writtenRanges.GetSafe(0)
	if !ok {
		return 0
	}
	readable := r.High() - b.baseOffset
	dataInChunks := uint64(b.capacity)
	count := 1
	idx := 1
	for readable > dataInChunks {
		dataInChunks += uint64(b.chunks[idx].AllocLength())
		idx++
		count++
	}
	return count
}

// Read returns the longest contiguous run of unread data from
// BaseOffset+pending-read-length forward, as a memview.MemView referencing
// the buffer's internal chunk storage directly (no copy). See §4.6.
//
// bufferCount bounds how many descriptors app-owned mode may use; it is
// ignored in the other modes, which have a small fixed descriptor bound.
func (b *Buffer) Read(bufferCount int) (offset uint64, out memview.MemView, err error) {
	r, ok := b.writtenRanges.GetSafe(0)
	if !ok || r.Low != 0 {
		return 0, memview.MemView{}, errors.Wrap(ErrInvalidParameter, "read called before data is ready")
	}
	invariant(len(b.chunks) > 0, "read called with no chunks")
	invariant(b.readPendingLength == 0 || b.mode == ModeMultiple, "concurrent reads only allowed in multiple mode")

	contiguousLength := r.High() - b.baseOffset

	switch b.mode {
	case ModeSingle:
		chunk := b.chunks[0]
		invariant(!chunk.ExternalReference, "single mode: chunk already referenced")
		offset = b.baseOffset
		b.readPendingLength += uint32(contiguousLength)
		chunk.ExternalReference = true
		return offset, memview.New(chunk.Buffer[:contiguousLength]), nil

	case ModeCircular:
		chunk := b.chunks[0]
		invariant(!chunk.ExternalReference, "circular mode: chunk already referenced")
		offset = b.baseOffset
		b.readPendingLength += uint32(contiguousLength)
		chunk.ExternalReference = true

		out = memview.Empty()
		if uint64(b.readStart)+contiguousLength > uint64(chunk.AllocLength()) {
			part1 := chunk.AllocLength() - b.readStart
			out.Append(memview.New(chunk.Buffer[b.readStart:]))
			out.Append(memview.New(chunk.Buffer[:uint32(contiguousLength)-part1]))
		} else {
			out.Append(memview.New(chunk.Buffer[b.readStart : uint64(b.readStart)+contiguousLength]))
		}
		return offset, out, nil

	case ModeMultiple:
		invariant(uint64(b.readPendingLength) < contiguousLength, "multiple mode: nothing new to read")
		unreadLength := contiguousLength - uint64(b.readPendingLength)

		chunkReadOffset := uint64(b.readPendingLength)
		chunkIdx := 0
		chunk := b.chunks[0]
		isFirstChunk := true
		chunkReadLength := uint64(b.readLength)
		for chunkReadLength <= chunkReadOffset {
			invariant(chunk.ExternalReference, "multiple mode: fully-read chunk should still be referenced")
			chunkReadOffset -= chunkReadLength
			isFirstChunk = false
			chunkIdx++
			chunk = b.chunks[chunkIdx]
			chunkReadLength = uint64(chunk.AllocLength())
		}
		chunkReadLength -= chunkReadOffset

		var chunkOff uint64
		if isFirstChunk {
			chunkOff = (uint64(b.readStart) + chunkReadOffset) % uint64(chunk.AllocLength())
		} else {
			chunkOff = chunkReadOffset
			if chunkReadLength > unreadLength {
				chunkReadLength = unreadLength
			}
		}

		out = memview.Empty()
		if chunkOff+chunkReadLength > uint64(chunk.AllocLength()) {
			part1 := uint64(chunk.AllocLength()) - chunkOff
			out.Append(memview.New(chunk.Buffer[chunkOff:]))
			out.Append(memview.New(chunk.Buffer[:chunkReadLength-part1]))
		} else {
			out.Append(memview.New(chunk.Buffer[chunkOff : chunkOff+chunkReadLength]))
		}
		chunk.ExternalReference = true

		if unreadLength > chunkReadLength {
			invariant(chunkIdx+1 < len(b.chunks), "multiple mode: missing continuation chunk")
			remaining := unreadLength - chunkReadLength
			chunkIdx++
			chunk = b.chunks[chunkIdx]
			out.Append(memview.New(chunk.Buffer[:remaining]))
			chunk.ExternalReference = true
		}

		offset = b.baseOffset + uint64(b.readPendingLength)
		b.readPendingLength += uint32(unreadLength)
		return offset, out, nil

	default: // ModeAppOwned
		remaining := contiguousLength
		out = memview.Empty()
		count := 0

		chunkIdx := 0
		chunk := b.chunks[0]
		chunk.ExternalReference = true
		out.Append(memview.New(chunk.Buffer[b.readStart : uint64(b.readStart)+uint64(b.readLength)]))
		remaining -= uint64(b.readLength)
		count++

		for count < bufferCount && remaining > 0 {
			chunkIdx++
			chunk = b.chunks[chunkIdx]
			chunk.ExternalReference = true
			readLen := uint64(chunk.AllocLength())
			if readLen > remaining {
				readLen = remaining
			}
			out.Append(memview.New(chunk.Buffer[:readLen]))
			remaining -= readLen
			count++
		}

		offset = b.baseOffset
		b.readPendingLength = uint32(contiguousLength - remaining)
		return offset, out, nil
	}
}

// partialDrain releases drainLength bytes without fully consuming the first
// chunk. See §4.7.
func (b *Buffer) partialDrain(drainLength uint32) {
	chunk := b.chunks[0]
	b.baseOffset += uint64(drainLength)

	if drainLength != 0 {
		switch b.mode {
		case ModeSingle:
			invariant(b.readStart == 0, "single mode: read start must be 0")
			copy(chunk.Buffer, chunk.Buffer[drainLength:])
		default:
			b.readStart = uint32((uint64(b.readStart) + uint64(drainLength)) % uint64(chunk.AllocLength()))
			if b.mode == ModeAppOwned || len(b.chunks) > 1 {
				invariant(b.mode == ModeMultiple || b.mode == ModeAppOwned, "unexpected mode shrinking capacity")
				b.capacity -= drainLength
			}
		}
		invariant(b.readLength >= drainLength, "read length underflow in partial drain")
		b.readLength -= drainLength
	}

	switch b.mode {
	case ModeMultiple:
		invariant(drainLength <= b.readPendingLength, "drain length exceeds pending read length")
		chunk.ExternalReference = b.readPendingLength != drainLength
		b.readPendingLength -= drainLength
	case ModeAppOwned:
		invariant(b.virtualBufferLength >= drainLength, "virtual buffer length underflow")
		b.virtualBufferLength -= drainLength
	}
	b.stats.TotalDrained += uint64(drainLength)
}

// fullDrain releases the first chunk's entire ReadLength and, if more
// remains to drain, removes and frees the chunk, returning the remaining
// drain length to continue the caller's loop. See §4.7.
func (b *Buffer) fullDrain(drainLength uint64) uint64 {
	chunk := b.chunks[0]

	drainLength -= uint64(b.readLength)
	b.readStart = 0
	b.baseOffset += uint64(b.readLength)

	if b.mode == ModeMultiple {
		chunk.ExternalReference = false
		b.readPendingLength -= b.readLength
	}
	if b.mode == ModeAppOwned {
		b.virtualBufferLength -= b.readLength
	}
	b.stats.TotalDrained += uint64(b.readLength)

	r := b.writtenRanges.Get(0)
	b.readLength = uint32(r.High() - b.baseOffset)

	if len(b.chunks) == 1 {
		invariant(drainLength == 0, "drained more than was available")
		invariant(b.readLength == 0, "read length should be zero after draining the last chunk")
		if b.mode == ModeAppOwned {
			b.chunks = b.chunks[:0]
			b.capacity = 0
		}
		return 0
	}

	invariant(b.mode == ModeMultiple || b.mode == ModeAppOwned, "unexpected mode with multiple chunks at full drain")
	b.releaseChunk(chunk)
	b.chunks = b.chunks[1:]

	newFirst := b.chunks[0]
	b.capacity = newFirst.AllocLength()
	if newFirst.AllocLength() < b.readLength {
		b.readLength = newFirst.AllocLength()
	}
	return drainLength
}

// Drain releases length bytes of previously-read data back to the buffer
// and reports whether all data readable at entry has now been drained. See
// §4.7.
func (b *Buffer) Drain(length uint64) (fullyDrained bool, err error) {
	if length > uint64(b.readPendingLength) {
		return false, errors.Wrap(ErrInvalidParameter, "drain length exceeds pending read length")
	}

	if b.retiredChunk != nil {
		invariant(b.mode == ModeSingle || b.mode == ModeCircular, "retired chunk only valid in single/circular mode")
		b.releaseChunk(b.retiredChunk)
		b.retiredChunk = nil
	}

	if b.mode != ModeMultiple {
		for _, c := range b.chunks {
			c.ExternalReference = false
		}
		b.readPendingLength = 0
	}

	r, ok := b.writtenRanges.GetSafe(0)
	invariant(ok && r.Low == 0, "drain called with no contiguous data from offset 0")

	drainLength := length
	for {
		moreDataReadable := uint64(b.readLength) > drainLength
		gapInChunk := b.writtenRanges.Size() > 1 && b.baseOffset+uint64(b.readLength) == r.High()

		partialDrain := moreDataReadable || gapInChunk
		switch b.mode {
		case ModeMultiple:
			partialDrain = partialDrain && uint64(b.capacity) > drainLength
		case ModeAppOwned:
			partialDrain = uint64(b.capacity) > drainLength
		}

		if partialDrain {
			b.partialDrain(uint32(drainLength))
			b.repOk()
			return !moreDataReadable, nil
		}

		drainLength = b.fullDrain(drainLength)
		if drainLength == 0 {
			break
		}
	}
	b.repOk()
	return true, nil
}

// ResetRead abandons an in-flight single-mode read without draining it,
// clearing the external reference and pending-read accounting so the same
// bytes can be read again from the same offset. See §4.10.
func (b *Buffer) ResetRead() error {
	if b.mode != ModeSingle {
		return errors.Wrap(ErrInvalidParameter, "reset_read is only valid in single mode")
	}
	invariant(len(b.chunks) > 0, "reset_read called with no chunks")
	invariant(b.retiredChunk == nil, "reset_read called with a retired chunk pending release")

	b.chunks[0].ExternalReference = false
	b.readPendingLength = 0
	return nil
}

// repOk checks the invariants of §3.2 when CheckInvariants is enabled.
func (b *Buffer) repOk() {
	if !CheckInvariants {
		return
	}
	for i, c := range b.chunks {
		if !c.AppOwned {
			invariant(isPowerOfTwo(c.AllocLength()), "chunk %d alloc length is not a power of two", i)
		}
	}
	ranges := b.writtenRanges.Snapshot()
	for i := 1; i < len(ranges); i++ {
		invariant(ranges[i-1].High() <= ranges[i].Low, "written ranges %d and %d are not disjoint/sorted", i-1, i)
	}
	if len(b.chunks) > 0 {
		invariant(b.capacity <= b.chunks[0].AllocLength(), "capacity exceeds first chunk alloc length")
	}
	if b.mode == ModeSingle || b.mode == ModeCircular {
		invariant(len(b.chunks) == 1, "single/circular mode must have exactly one chunk")
	}
}
