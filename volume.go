package fatfs

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/multierr"
)

// MountOption configures a call to [Volume.Mount].
type MountOption func(*Volume)

// WithLogger overrides the [*slog.Logger] used for this volume's
// trace-level instrumentation. The default is [slog.Default].
func WithLogger(log *slog.Logger) MountOption {
	return func(v *Volume) { v.log = log }
}

// Volume is the mounted state of exactly one volume: its superblock, the
// in-memory FAT, the root directory, and the open handle table. The zero
// value is unmounted and ready for [Volume.Mount].
type Volume struct {
	mounted bool
	gen     uint32 // incremented on every Mount, stamped into every Handle.

	gw   *gateway
	sb   superblock
	fat  *fatTable
	root *rootDirectory
	open *openTable
	log  *slog.Logger
}

// Mount loads the superblock, FAT, and root directory from dev and makes
// the volume ready for use. It fails if a volume is already mounted on
// this Volume value, or if the device fails validation or any superblock
// invariant.
func (v *Volume) Mount(dev BlockDevice, opts ...MountOption) error {
	if v.mounted {
		return errAlreadyMntd
	}
	if v.log == nil {
		v.log = slog.Default()
	}
	for _, opt := range opts {
		opt(v)
	}

	gw, err := newGateway(dev)
	if err != nil {
		return err
	}

	block := make([]byte, BlockSize)
	if err := gw.readBlock(0, block); err != nil {
		return err
	}
	sb, err := decodeSuperblock(block, gw.blocks)
	if err != nil {
		return err
	}

	fat, err := loadFATTable(gw, v.log, sb.numFATBlocks, sb.numDataBlocks)
	if err != nil {
		return err
	}
	root, err := loadRootDirectory(gw, v.log, sb.rootIndex)
	if err != nil {
		return err
	}

	v.gw = gw
	v.sb = sb
	v.fat = fat
	v.root = root
	v.open = &openTable{}
	v.gen++
	v.mounted = true
	v.log.Log(nil, slogLevelTrace, "mount", slog.Int("total_blocks", int(sb.numBlocks)))
	return nil
}

// Unmount flushes the FAT and root directory back to their reserved
// blocks and releases the mounted state. It fails if any handle is still
// open.
func (v *Volume) Unmount() error {
	if !v.mounted {
		return errNotMounted
	}
	if v.open.count() > 0 {
		return errOpenHandles
	}
	fatErr := v.fat.flush(v.gw, v.log, v.sb.numFATBlocks)
	rootErr := v.root.flush(v.gw, v.log, v.sb.rootIndex)
	v.mounted = false
	v.gw = nil
	v.fat = nil
	v.root = nil
	v.open = nil
	if fatErr != nil || rootErr != nil {
		return multierr.Combine(fatErr, rootErr)
	}
	v.log.Log(nil, slogLevelTrace, "unmount")
	return nil
}

func (v *Volume) requireMounted() error {
	if !v.mounted {
		return errNotMounted
	}
	return nil
}

// VolumeInfo is the snapshot returned by [Volume.Info].
type VolumeInfo struct {
	TotalBlocks    uint16
	FATBlocks      uint8
	RootBlock      uint16
	DataBlock      uint16
	DataBlockCount uint16
	FATFree        int
	RootFree       int
}

// String renders the fields in the documented diagnostic format.
func (info VolumeInfo) String() string {
	return fmt.Sprintf(
		"total_blk_count=%d\nfat_blk_count=%d\nrdir_blk=%d\ndata_blk=%d\ndata_blk_count=%d\nfat_free_ratio=%d/%d\nrdir_free_ratio=%d/%d\n",
		info.TotalBlocks, info.FATBlocks, info.RootBlock, info.DataBlock, info.DataBlockCount,
		info.FATFree, info.DataBlockCount, info.RootFree, MaxFileCount,
	)
}

// Info reports the mounted volume's geometry and free-space ratios.
func (v *Volume) Info() (VolumeInfo, error) {
	if err := v.requireMounted(); err != nil {
		return VolumeInfo{}, err
	}
	rootFree := 0
	for _, e := range v.root.entries {
		if e.empty() {
			rootFree++
		}
	}
	return VolumeInfo{
		TotalBlocks:    v.sb.numBlocks,
		FATBlocks:      v.sb.numFATBlocks,
		RootBlock:      v.sb.rootIndex,
		DataBlock:      v.sb.dataStartIndex,
		DataBlockCount: v.sb.numDataBlocks,
		FATFree:        v.fat.freeCount(),
		RootFree:       rootFree,
	}, nil
}

// FileInfo describes one root directory entry, as returned by
// [Volume.List] and [Handle.Stat].
type FileInfo struct {
	Name      string
	Size      int64
	DataBlock uint16 // first_index; EOC for an empty file.
}

// String renders the entry in the documented ls line format.
func (fi FileInfo) String() string {
	return fmt.Sprintf("file: %s, size: %d, data_blk: %d", fi.Name, fi.Size, fi.DataBlock)
}

// FileInfoList is the result of [Volume.List]. Its String method
// reproduces the specification's ls output, one documented line per
// entry.
type FileInfoList []FileInfo

func (l FileInfoList) String() string {
	var b strings.Builder
	for _, fi := range l {
		b.WriteString(fi.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Create adds a new, empty directory entry named name.
func (v *Volume) Create(name string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	v.log.Log(nil, slogLevelTrace, "create", slog.String("name", name))
	return v.root.create(name)
}

// Delete removes the directory entry named name and releases its FAT
// chain. It fails if any handle currently targets name.
func (v *Volume) Delete(name string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	slot, err := v.root.find(name)
	if err != nil {
		return err
	}
	if v.open.anyOpen(slot) {
		return errNameInUse
	}
	v.fat.freeChain(v.root.entries[slot].firstIndex)
	v.root.delete(slot)
	v.log.Log(nil, slogLevelTrace, "delete", slog.String("name", name))
	return nil
}

// List returns a FileInfo for every non-empty directory entry, in slot
// order.
func (v *Volume) List() (FileInfoList, error) {
	if err := v.requireMounted(); err != nil {
		return nil, err
	}
	var out FileInfoList
	for _, e := range v.root.entries {
		if !e.empty() {
			out = append(out, FileInfo{Name: e.nameString(), Size: int64(e.size), DataBlock: e.firstIndex})
		}
	}
	return out, nil
}

// Handle is an open reference to a file: a directory entry and a byte
// offset. It implements [io.Reader], [io.Writer], [io.Seeker], and
// [io.Closer].
type Handle struct {
	vol *Volume
	fd  int
	gen uint32
}

// Open opens the named file for reading and writing and returns a new
// independent Handle with offset 0. The same name may be opened more
// than once, each call producing its own Handle and offset.
func (v *Volume) Open(name string) (*Handle, error) {
	if err := v.requireMounted(); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	slot, err := v.root.find(name)
	if err != nil {
		return nil, err
	}
	fd, err := v.open.open(slot)
	if err != nil {
		return nil, err
	}
	v.log.Log(nil, slogLevelTrace, "open", slog.String("name", name), slog.Int("fd", fd))
	return &Handle{vol: v, fd: fd, gen: v.gen}, nil
}

func (h *Handle) validate() error {
	if h.vol == nil || !h.vol.mounted || h.gen != h.vol.gen {
		return errStaleHandle
	}
	if !h.vol.open.validFD(h.fd) {
		return errBadHandle
	}
	return nil
}

// Close releases the handle. Further use of h returns an error.
func (h *Handle) Close() error {
	if err := h.validate(); err != nil {
		return err
	}
	vol := h.vol
	fd := h.fd
	h.vol = nil
	return vol.open.close(fd)
}

// Read implements [io.Reader]. It returns io.EOF once the handle's
// offset reaches the file's current size.
func (h *Handle) Read(buf []byte) (int, error) {
	if err := h.validate(); err != nil {
		return 0, err
	}
	if buf == nil {
		return 0, errNilBuffer
	}
	n, err := h.vol.readAt(h.fd, buf)
	if err != nil {
		return n, err
	}
	if n == 0 && len(buf) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements [io.Writer]. A write that would exceed the volume's
// free space is not an error: it transfers as many bytes as fit and
// returns that count with a nil error, exactly mirroring what the short
// write leaves durable in the FAT.
func (h *Handle) Write(buf []byte) (int, error) {
	if err := h.validate(); err != nil {
		return 0, err
	}
	if buf == nil {
		return 0, errNilBuffer
	}
	return h.vol.writeAt(h.fd, buf)
}

// Seek implements [io.Seeker]. The resulting offset must not exceed the
// file's current size; seeking exactly to the current size is allowed
// and is the prerequisite for append-style writes.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if err := h.validate(); err != nil {
		return 0, err
	}
	slot := &h.vol.open.slots[h.fd]
	entry := &h.vol.root.entries[slot.dirSlot]

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(slot.offset) + offset
	case io.SeekEnd:
		target = int64(entry.size) + offset
	default:
		return 0, errOffsetTooFar
	}
	if target < 0 || target > int64(entry.size) {
		return 0, errOffsetTooFar
	}
	slot.offset = uint32(target)
	return target, nil
}

// Stat reports the handle's file's current name, size and first FAT
// index.
func (h *Handle) Stat() (FileInfo, error) {
	if err := h.validate(); err != nil {
		return FileInfo{}, err
	}
	slot := &h.vol.open.slots[h.fd]
	entry := &h.vol.root.entries[slot.dirSlot]
	return FileInfo{Name: entry.nameString(), Size: int64(entry.size), DataBlock: entry.firstIndex}, nil
}
