package buffer

// DefaultBlockSize is the capacity of freshly allocated blocks unless a
// bigger reservation forces an oversized one.
const DefaultBlockSize = 4096

// Region is a writable window carved out of one of the buffer blocks by
// Reserve. The window stays addressable until Clear, as blocks handed
// out this way are never reallocated.
type Region struct {
	// Block identifies the block the region lives in.
	Block int
	// Begin is the offset of the region within the block.
	Begin int
	// B is the writable window itself.
	B []byte
}

// Buffer is an append-only block storage. The head block is special: it
// accumulates contiguous writes and may be reallocated to grow until
// Finalize latches it. All the other blocks are fixed-capacity, so any
// byte stored outside the head block keeps its address for the whole
// lifetime of the buffer.
type Buffer struct {
	blocks    [][]byte
	blocksize int
	finalized bool
}

// New returns an empty buffer allocating blocks of the given size.
func New(blocksize int) *Buffer {
	return &Buffer{blocksize: blocksize}
}

func (b *Buffer) size() int {
	if b.blocksize <= 0 {
		return DefaultBlockSize
	}

	return b.blocksize
}

func (b *Buffer) alloc(n int) []byte {
	return make([]byte, 0, n)
}

// WriteContiguous appends p to the head block, growing it as needed.
// Must not be called once the buffer is finalized.
func (b *Buffer) WriteContiguous(p []byte) {
	if b.finalized {
		panic("buffer: contiguous write after Finalize")
	}

	if len(p) == 0 {
		return
	}

	if len(b.blocks) == 0 {
		b.blocks = append(b.blocks, b.alloc(b.size()))
	}

	b.blocks[0] = append(b.blocks[0], p...)
}

// Finalize forbids further contiguous writes. From now on the head
// block cannot be reallocated anymore, which makes its slack eligible
// for Reserve and its contents stable.
func (b *Buffer) Finalize() {
	b.finalized = true
}

// Finalized reports whether contiguous writes are over.
func (b *Buffer) Finalized() bool {
	return b.finalized
}

// Contiguous returns everything written through WriteContiguous so far.
func (b *Buffer) Contiguous() []byte {
	if len(b.blocks) == 0 {
		return nil
	}

	return b.blocks[0]
}

// ContiguousLen reports the length of the contiguous head block.
func (b *Buffer) ContiguousLen() int {
	if len(b.blocks) == 0 {
		return 0
	}

	return len(b.blocks[0])
}

// Block returns the used part of the block. The slice aliases the
// backing storage, so writes through it are visible to other readers.
func (b *Buffer) Block(id int) []byte {
	return b.blocks[id]
}

// NumBlocks reports how many blocks are allocated.
func (b *Buffer) NumBlocks() int {
	return len(b.blocks)
}

// Reserve carves out a writable region of n bytes. The head block is
// only considered once the buffer is finalized; any other block never
// reallocates, so the returned window stays valid until Clear.
func (b *Buffer) Reserve(n int) Region {
	if len(b.blocks) == 0 {
		b.blocks = append(b.blocks, b.alloc(b.size()))
	}

	first := 1
	if b.finalized {
		first = 0
	}

	id := -1

	for i := first; i < len(b.blocks); i++ {
		if cap(b.blocks[i])-len(b.blocks[i]) >= n {
			id = i
			break
		}
	}

	if id == -1 {
		size := b.size()
		if n > size {
			size = n
		}

		b.blocks = append(b.blocks, b.alloc(size))
		id = len(b.blocks) - 1
	}

	begin := len(b.blocks[id])
	b.blocks[id] = b.blocks[id][:begin+n]

	return Region{
		Block: id,
		Begin: begin,
		B:     b.blocks[id][begin : begin+n],
	}
}

// TotalBytesUsed reports how many bytes are stored across all blocks.
func (b *Buffer) TotalBytesUsed() (total int) {
	for _, block := range b.blocks {
		total += len(block)
	}

	return total
}

// Blocksize returns the allocation unit the buffer was created with.
func (b *Buffer) Blocksize() int {
	if b.blocksize == 0 {
		return DefaultBlockSize
	}

	return b.blocksize
}

// Clear drops all blocks and re-enables contiguous writes. The block
// list keeps its capacity, the blocks themselves are released.
func (b *Buffer) Clear() {
	for i := range b.blocks {
		b.blocks[i] = nil
	}

	b.blocks = b.blocks[:0]
	b.finalized = false
}

// CopyFrom turns b into a deep copy of other.
func (b *Buffer) CopyFrom(other *Buffer) {
	for i := range b.blocks {
		b.blocks[i] = nil
	}

	b.blocks = b.blocks[:0]

	for _, block := range other.blocks {
		dup := make([]byte, len(block), cap(block))
		copy(dup, block)
		b.blocks = append(b.blocks, dup)
	}

	b.blocksize = other.blocksize
	b.finalized = other.finalized
}
