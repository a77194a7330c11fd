// Package fatfs implements a small single-volume, FAT-style file system
// layered on top of a pluggable block device.
//
// A [Volume] owns exactly one mounted image at a time: its superblock, the
// in-memory File Allocation Table, the flat root directory, and the table
// of open handles. Callers drive it through [Volume.Mount], [Volume.Create],
// [Volume.Delete], [Volume.Open] and [Volume.Unmount]; [Handle] implements
// [io.ReadWriteSeeker] and [io.Closer] for the data path.
//
// The package does not implement concurrency control, journaling, nested
// directories, or an image-formatting tool. Callers must serialize access
// to a Volume externally and build images with their own tooling or the
// test helpers in this package's test files.
package fatfs
