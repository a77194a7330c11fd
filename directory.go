package fatfs

import (
	"encoding/binary"
	"log/slog"
)

// dirEntry is one 32-byte slot of the root directory. padding is opaque
// to this package but preserved verbatim across mount/unmount, since the
// format reserves it for a future use this library does not define.
type dirEntry struct {
	name       [MaxFilenameLen]byte
	size       uint32
	firstIndex uint16
	padding    [10]byte
}

func (e *dirEntry) empty() bool { return e.name[0] == 0 }

func (e *dirEntry) nameString() string { return nameString(e.name[:]) }

func decodeDirEntry(b []byte) dirEntry {
	var e dirEntry
	copy(e.name[:], b[0:16])
	e.size = binary.LittleEndian.Uint32(b[16:20])
	e.firstIndex = binary.LittleEndian.Uint16(b[20:22])
	copy(e.padding[:], b[22:32])
	return e
}

func (e dirEntry) encode(dst []byte) {
	copy(dst[0:16], e.name[:])
	binary.LittleEndian.PutUint32(dst[16:20], e.size)
	binary.LittleEndian.PutUint16(dst[20:22], e.firstIndex)
	copy(dst[22:32], e.padding[:])
}

// rootDirectory is the fixed-size array of MaxFileCount directory entries
// held entirely in RAM between mount and unmount.
type rootDirectory struct {
	entries [MaxFileCount]dirEntry
}

func loadRootDirectory(gw *gateway, log *slog.Logger, rootIndex uint16) (*rootDirectory, error) {
	block := make([]byte, BlockSize)
	if err := gw.readBlock(rootIndex, block); err != nil {
		return nil, err
	}
	rd := &rootDirectory{}
	for i := 0; i < MaxFileCount; i++ {
		rd.entries[i] = decodeDirEntry(block[i*dirEntrySize : (i+1)*dirEntrySize])
	}
	log.Log(nil, slogLevelTrace, "root.load", slog.Int("block", int(rootIndex)))
	return rd, nil
}

func (rd *rootDirectory) flush(gw *gateway, log *slog.Logger, rootIndex uint16) error {
	block := make([]byte, BlockSize)
	for i := 0; i < MaxFileCount; i++ {
		rd.entries[i].encode(block[i*dirEntrySize : (i+1)*dirEntrySize])
	}
	if err := gw.writeBlock(rootIndex, block); err != nil {
		return err
	}
	log.Log(nil, slogLevelTrace, "root.flush", slog.Int("block", int(rootIndex)))
	return nil
}

// find returns the slot index of the entry matching name, or NotFound.
func (rd *rootDirectory) find(name string) (int, error) {
	for i := range rd.entries {
		e := &rd.entries[i]
		if !e.empty() && e.nameString() == name {
			return i, nil
		}
	}
	return -1, errNotFound
}

// firstEmpty returns the lowest-indexed empty slot, or Full.
func (rd *rootDirectory) firstEmpty() (int, error) {
	for i := range rd.entries {
		if rd.entries[i].empty() {
			return i, nil
		}
	}
	return -1, errDirFull
}

// create validates name and populates a fresh slot for it. The caller
// must already know no handle references the name (not applicable to a
// brand new file, but kept symmetric with delete).
func (rd *rootDirectory) create(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, err := rd.find(name); err == nil {
		return errAlreadyExists
	}
	slot, err := rd.firstEmpty()
	if err != nil {
		return err
	}
	e := &rd.entries[slot]
	e.name = nameBytes(name)
	e.size = 0
	e.firstIndex = EOC
	return nil
}

// delete resets the slot holding name to empty. The caller is
// responsible for having already released the FAT chain.
func (rd *rootDirectory) delete(slot int) {
	e := &rd.entries[slot]
	e.name = [MaxFilenameLen]byte{}
	e.size = 0
	e.firstIndex = EOC
}
