package util

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/xi2/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || err != nil {
		return false
	}
	return info.IsDir()
}

// FileExists reports whether path exists and is not a directory. Pipes and
// devices count as files.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Input is an opened, possibly decompressed, input file.
type Input struct {
	io.Reader
	Path string
	Size int64 // size on disk, compressed or not

	closers []io.Closer
}

func (in *Input) Close() error {
	var err error
	for i := len(in.closers) - 1; i >= 0; i-- {
		if cerr := in.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OpenInput opens path and transparently decompresses gzip and xz content,
// detected by magic bytes. proxy, when not nil, wraps the raw file reader
// before decompression so that byte counters see on-disk offsets.
func OpenInput(path string, proxy func(r io.Reader, size int64) io.Reader) (*Input, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, path)
	}

	in := &Input{Path: path, closers: []io.Closer{fh}}
	if info, err := fh.Stat(); err == nil {
		in.Size = info.Size()
	}

	var raw io.Reader = fh
	if proxy != nil {
		raw = proxy(fh, in.Size)
	}

	br := bufio.NewReaderSize(raw, 1<<16)
	sig, _ := br.Peek(len(xzMagic))

	switch {
	case bytes.HasPrefix(sig, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			in.Close()
			return nil, pkgerrors.Wrap(err, path)
		}
		in.closers = append(in.closers, gr)
		in.Reader = gr
	case bytes.HasPrefix(sig, xzMagic):
		xr, err := xz.NewReader(br, 0)
		if err != nil {
			in.Close()
			return nil, pkgerrors.Wrap(err, path)
		}
		in.Reader = xr
	default:
		in.Reader = br
	}

	return in, nil
}
