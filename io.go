package fatfs

import (
	"log/slog"
)

// readAt implements the read half of the I/O engine: translate the
// handle's (offset, count) into a first-partial / full-middle /
// last-partial sequence of block transfers through a bounce buffer,
// walking the FAT as needed. It never extends the file and never
// returns an error for running out of bytes to read; callers see that
// as a zero-length, nil-error result and translate it to io.EOF.
func (v *Volume) readAt(fd int, buf []byte) (int, error) {
	slot := &v.open.slots[fd]
	entry := &v.root.entries[slot.dirSlot]

	avail := int64(entry.size) - int64(slot.offset)
	if avail < 0 {
		avail = 0
	}
	want := len(buf)
	if int64(want) > avail {
		want = int(avail)
	}
	if want == 0 {
		return 0, nil
	}

	v.log.Log(nil, slogLevelTrace, "read", slog.Int("fd", fd), slog.Int("want", want), slog.Int("offset", int(slot.offset)))

	bounce := make([]byte, BlockSize)
	remaining := want
	bufPos := 0
	for remaining > 0 {
		blockOff := int(slot.offset) % BlockSize
		n := BlockSize - blockOff
		if n > remaining {
			n = remaining
		}
		diskBlock, err := v.dataBlockFor(entry.firstIndex, slot.offset)
		if err != nil {
			return bufPos, err
		}
		if blockOff == 0 && n == BlockSize {
			if err := v.gw.readBlock(diskBlock, buf[bufPos:bufPos+n]); err != nil {
				return bufPos, err
			}
		} else {
			if err := v.gw.readBlock(diskBlock, bounce); err != nil {
				return bufPos, err
			}
			copy(buf[bufPos:bufPos+n], bounce[blockOff:blockOff+n])
		}
		slot.offset += uint32(n)
		bufPos += n
		remaining -= n
	}
	return bufPos, nil
}

// writeAt implements the write half of the I/O engine. It first extends
// the file's FAT chain to cover offset+len(buf), tolerating a short
// extension on NoSpace, then transfers exactly as many bytes as the
// resulting chain can hold, reporting that count rather than an error.
func (v *Volume) writeAt(fd int, buf []byte) (int, error) {
	slot := &v.open.slots[fd]
	entry := &v.root.entries[slot.dirSlot]

	count := len(buf)
	if count == 0 {
		return 0, nil
	}
	end := uint64(slot.offset) + uint64(count)
	targetBlocks := ceilDiv32(end, BlockSize)

	newFirst, haveLen, extendErr := v.fat.extend(entry.firstIndex, targetBlocks)
	entry.firstIndex = newFirst

	capacity := uint64(haveLen) * BlockSize
	usable := uint64(count)
	if uint64(slot.offset)+usable > capacity {
		if capacity <= uint64(slot.offset) {
			usable = 0
		} else {
			usable = capacity - uint64(slot.offset)
		}
	}
	_ = extendErr // NoSpace is expressed below via the reduced usable/bytesWritten, not returned.

	v.log.Log(nil, slogLevelTrace, "write", slog.Int("fd", fd), slog.Int("count", count), slog.Uint64("usable", usable))

	bounce := make([]byte, BlockSize)
	remaining := int(usable)
	bufPos := 0
	for remaining > 0 {
		blockOff := int(slot.offset) % BlockSize
		n := BlockSize - blockOff
		if n > remaining {
			n = remaining
		}
		diskBlock, err := v.dataBlockFor(entry.firstIndex, slot.offset)
		if err != nil {
			return bufPos, err
		}
		if blockOff == 0 && n == BlockSize {
			if err := v.gw.writeBlock(diskBlock, buf[bufPos:bufPos+n]); err != nil {
				return bufPos, err
			}
		} else {
			if err := v.gw.readBlock(diskBlock, bounce); err != nil {
				return bufPos, err
			}
			copy(bounce[blockOff:blockOff+n], buf[bufPos:bufPos+n])
			if err := v.gw.writeBlock(diskBlock, bounce); err != nil {
				return bufPos, err
			}
		}
		slot.offset += uint32(n)
		bufPos += n
		remaining -= n
	}

	if uint32(slot.offset) > entry.size {
		entry.size = slot.offset
	}
	return bufPos, nil
}

// dataBlockFor resolves the on-disk block index holding the byte at
// logical offset off within the chain starting at first.
func (v *Volume) dataBlockFor(first uint16, off uint32) (uint16, error) {
	k := off / BlockSize
	idx, err := v.fat.walk(first, k)
	if err != nil {
		return 0, err
	}
	return v.sb.dataStartIndex + idx, nil
}
