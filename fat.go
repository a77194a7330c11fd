package fatfs

import (
	"encoding/binary"
	"log/slog"
)

// fatEntriesPerBlock is how many u16 FAT entries pack into one block.
const fatEntriesPerBlock = BlockSize / 2

// fatTable is the complete File Allocation Table held in RAM: a linked
// allocator over the volume's data blocks, indexed by data-block number
// (0-based). Entry 0 is reserved and is never the target of an
// allocation; entries are one of free (0), FAT_EOC, or the next data
// block in a chain.
type fatTable struct {
	entries []uint16 // length numDataBlocks
}

func loadFATTable(gw *gateway, log *slog.Logger, numFATBlocks uint8, numDataBlocks uint16) (*fatTable, error) {
	entries := make([]uint16, numDataBlocks)
	block := make([]byte, BlockSize)
	remaining := int(numDataBlocks)
	for i := uint8(0); i < numFATBlocks && remaining > 0; i++ {
		if err := gw.readBlock(1+uint16(i), block); err != nil {
			return nil, err
		}
		n := fatEntriesPerBlock
		if n > remaining {
			n = remaining
		}
		base := int(i) * fatEntriesPerBlock
		for j := 0; j < n; j++ {
			entries[base+j] = binary.LittleEndian.Uint16(block[j*2 : j*2+2])
		}
		remaining -= n
	}
	log.Log(nil, slogLevelTrace, "fat.load", slog.Int("num_entries", int(numDataBlocks)), slog.Int("num_blocks", int(numFATBlocks)))
	return &fatTable{entries: entries}, nil
}

// flush writes the table back across its numFATBlocks reserved blocks,
// zero-filling any trailing bytes in the last block.
func (t *fatTable) flush(gw *gateway, log *slog.Logger, numFATBlocks uint8) error {
	block := make([]byte, BlockSize)
	for i := uint8(0); i < numFATBlocks; i++ {
		for b := range block {
			block[b] = 0
		}
		base := int(i) * fatEntriesPerBlock
		for j := 0; j < fatEntriesPerBlock && base+j < len(t.entries); j++ {
			binary.LittleEndian.PutUint16(block[j*2:j*2+2], t.entries[base+j])
		}
		if err := gw.writeBlock(1+uint16(i), block); err != nil {
			return err
		}
	}
	log.Log(nil, slogLevelTrace, "fat.flush", slog.Int("num_blocks", int(numFATBlocks)))
	return nil
}

// walk follows the chain starting at first for n hops and reports the
// resulting data-block index. walk(first, 0) returns first unchanged,
// even if first == EOC. A hop that starts from or lands on EOC (the chain
// holds n or fewer blocks) is reported as an error.
func (t *fatTable) walk(first uint16, n uint32) (uint16, error) {
	cur := first
	for ; n > 0; n-- {
		if cur == EOC {
			return 0, fsErrorf(KindArgument, "fat_walk", "chain ended before requested hop")
		}
		if int(cur) >= len(t.entries) {
			return 0, fsErrorf(KindFormat, "fat_walk", "chain entry out of range")
		}
		cur = t.entries[cur]
		if cur == EOC {
			return 0, fsErrorf(KindArgument, "fat_walk", "chain ended before requested hop")
		}
	}
	return cur, nil
}

// chainLength reports the number of blocks reachable from first,
// including first itself. An empty file (first == EOC) has length 0.
func (t *fatTable) chainLength(first uint16) uint32 {
	if first == EOC {
		return 0
	}
	var n uint32 = 1
	cur := first
	for t.entries[cur] != EOC {
		cur = t.entries[cur]
		n++
	}
	return n
}

// freeChain releases every block in the chain starting at first,
// including the terminating entry, setting each to free (0). It is a
// no-op on EOC.
func (t *fatTable) freeChain(first uint16) {
	cur := first
	for cur != EOC {
		next := t.entries[cur]
		t.entries[cur] = 0
		cur = next
	}
}

// extend grows the chain starting at first to at least targetLen blocks,
// using a first-fit scan over entries starting at index 1 (entry 0 is
// never allocated). It returns the (possibly new) chain head and the
// number of blocks the chain has after the call.
//
// If insufficient free entries exist, extend performs as much of the
// extension as possible, leaving the partial chain intact and valid
// (tail entry == EOC), and reports NoSpace. Callers that only need a
// best-effort allocation (the write path) inspect the returned length
// rather than treating NoSpace as fatal.
func (t *fatTable) extend(first uint16, targetLen uint32) (newFirst uint16, haveLen uint32, err error) {
	haveLen = t.chainLength(first)
	if haveLen >= targetLen {
		return first, haveLen, nil
	}
	newFirst = first
	tail := EOC
	if first != EOC {
		tail = t.lastOf(first)
	}
	for haveLen < targetLen {
		free, ok := t.firstFree()
		if !ok {
			return newFirst, haveLen, fsErrorf(KindNoSpace, "fat_extend", "no free data blocks")
		}
		t.entries[free] = EOC
		if tail == EOC && newFirst == EOC {
			newFirst = free
		} else {
			t.entries[tail] = free
		}
		tail = free
		haveLen++
	}
	return newFirst, haveLen, nil
}

func (t *fatTable) lastOf(first uint16) uint16 {
	cur := first
	for t.entries[cur] != EOC {
		cur = t.entries[cur]
	}
	return cur
}

func (t *fatTable) firstFree() (uint16, bool) {
	for i := 1; i < len(t.entries); i++ {
		if t.entries[i] == 0 {
			return uint16(i), true
		}
	}
	return 0, false
}

// freeCount reports how many entries (excluding the reserved entry 0)
// are currently free, used by Volume.Info's fat_free_ratio.
func (t *fatTable) freeCount() int {
	n := 0
	for i := 1; i < len(t.entries); i++ {
		if t.entries[i] == 0 {
			n++
		}
	}
	return n
}
