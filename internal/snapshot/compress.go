package snapshot

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compressor wraps the snapshot stream.
type Compressor interface {
	Name() string
	Extension() string
	Compress(w io.Writer) (io.WriteCloser, error)
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// CompressorFor picks the compressor matching a file name's extension.
func CompressorFor(name string) Compressor {
	if zc := NewZstdCompressor(); strings.HasSuffix(name, zc.Extension()) {
		return zc
	}
	return NewNoOpCompressor()
}

// FileName appends the extension of c to name unless name already ends
// with it, so that CompressorFor(FileName(name, c)) picks c again.
func FileName(name string, c Compressor) string {
	if strings.HasSuffix(name, c.Extension()) {
		return name
	}
	return name + c.Extension()
}

type zstdCompressor struct{}

// NewZstdCompressor returns a Zstandard compressor (".zst").
func NewZstdCompressor() Compressor { return zstdCompressor{} }

func (zstdCompressor) Name() string      { return "zstd" }
func (zstdCompressor) Extension() string { return ".zst" }

func (zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (zstdCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

type noopCompressor struct{}

// NewNoOpCompressor returns a pass-through compressor.
func NewNoOpCompressor() Compressor { return noopCompressor{} }

func (noopCompressor) Name() string      { return "noop" }
func (noopCompressor) Extension() string { return "" }

func (noopCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (noopCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
