package fatfs

import "testing"

// newTestVolume builds a fresh, empty image of numBlocks blocks with
// numFATBlocks reserved for the FAT, writes its superblock directly
// (there is no mkfs API in this package; image creation is explicitly an
// external concern), and mounts it. The zero-value FAT and root blocks
// decode to an all-free, all-empty volume, which is valid on-disk state.
func newTestVolume(t *testing.T, numBlocks int, numFATBlocks uint8) (*Volume, *MemoryDevice) {
	t.Helper()
	dev := NewMemoryDevice(numBlocks)

	rootIndex := uint16(1) + uint16(numFATBlocks)
	dataStart := rootIndex + 1
	numData := uint16(numBlocks) - dataStart

	sb := superblock{
		numBlocks:      uint16(numBlocks),
		rootIndex:      rootIndex,
		dataStartIndex: dataStart,
		numDataBlocks:  numData,
		numFATBlocks:   numFATBlocks,
	}
	if err := dev.WriteBlock(0, sb.encode()); err != nil {
		t.Fatalf("write superblock: %v", err)
	}

	var v Volume
	if err := v.Mount(dev); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return &v, dev
}
