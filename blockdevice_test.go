package fatfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryDeviceReadWriteRoundTrip(t *testing.T) {
	dev := NewMemoryDevice(4)
	n, err := dev.BlockCount()
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	payload := make([]byte, BlockSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, dev.WriteBlock(2, payload))

	got := make([]byte, BlockSize)
	require.NoError(t, dev.ReadBlock(2, got))
	require.Equal(t, payload, got)
}

func TestMemoryDeviceOutOfRange(t *testing.T) {
	dev := NewMemoryDevice(2)
	buf := make([]byte, BlockSize)
	require.Error(t, dev.ReadBlock(5, buf))
	require.Error(t, dev.WriteBlock(5, buf))
}

func TestGatewayRejectsWrongSizedBuffer(t *testing.T) {
	dev := NewMemoryDevice(2)
	gw, err := newGateway(dev)
	require.NoError(t, err)

	err = gw.readBlock(0, make([]byte, BlockSize-1))
	require.Error(t, err)
	kind, ok := Code(err)
	require.True(t, ok)
	require.Equal(t, KindIO, kind)
}

func TestGatewayRejectsOutOfRangeBlock(t *testing.T) {
	dev := NewMemoryDevice(2)
	gw, err := newGateway(dev)
	require.NoError(t, err)

	err = gw.readBlock(9, make([]byte, BlockSize))
	require.Error(t, err)
}

func TestFileDeviceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	dev, err := CreateFileDevice(path, 3)
	require.NoError(t, err)
	defer dev.Close()

	payload := make([]byte, BlockSize)
	payload[0] = 0xAB
	require.NoError(t, dev.WriteBlock(1, payload))

	got := make([]byte, BlockSize)
	require.NoError(t, dev.ReadBlock(1, got))
	require.Equal(t, payload, got)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 3*BlockSize, fi.Size())
}

func TestOpenFileDeviceRejectsBadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, BlockSize+1), 0o644))
	_, err := OpenFileDevice(path)
	require.Error(t, err)
}
