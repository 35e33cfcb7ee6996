package terrain

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

var ErrBadSnapshot = errors.New("terrain: bad snapshot")

var snapshotMagic = [4]byte{'B', 'W', 'T', '1'}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Checksum is the blake3 hex digest of the material buffer. Two peers with the
// same seed and the same replayed log agree on it.
func (g *Grid) Checksum() string {
	sum := blake3.Sum256(g.Buffer())
	return hex.EncodeToString(sum[:])
}

// EncodeSnapshot writes magic, dimensions and seed followed by the cells,
// all lz4 framed.
func EncodeSnapshot(g *Grid) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	zw := lz4.NewWriter(buf)
	var header [16]byte
	copy(header[:4], snapshotMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], uint32(g.Width))
	binary.LittleEndian.PutUint32(header[8:12], uint32(g.Height))
	binary.LittleEndian.PutUint32(header[12:16], g.Seed)
	if _, err := zw.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := zw.Write(g.Buffer()); err != nil {
		return nil, fmt.Errorf("write snapshot cells: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeSnapshot restores a grid. The damage log is not part of a snapshot.
func DecodeSnapshot(src []byte) (*Grid, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	zr := lz4.NewReader(bytes.NewReader(src))
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	data := buf.Bytes()
	if len(data) < 16 || !bytes.Equal(data[:4], snapshotMagic[:]) {
		return nil, ErrBadSnapshot
	}
	width := int(binary.LittleEndian.Uint32(data[4:8]))
	height := int(binary.LittleEndian.Uint32(data[8:12]))
	if width <= 0 || height <= 0 || len(data)-16 != width*height {
		return nil, fmt.Errorf("%w: size mismatch", ErrBadSnapshot)
	}

	g := New(width, height)
	g.Seed = binary.LittleEndian.Uint32(data[12:16])
	for i, b := range data[16:] {
		g.Cells[i] = Material(b)
	}
	return g, nil
}
