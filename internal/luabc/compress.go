package luabc

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"

	"lua53vm.dev/lua/internal/luacode"
)

// CompressedSuffix is appended to a .luabc filename when --compress is
// requested, mirroring how the teacher's store artifacts carry a
// compression-format suffix.
const CompressedSuffix = ".bz2"

// bzip2Magic is the byte prefix of every bzip2 stream ("BZh").
var bzip2Magic = []byte("BZh")

// WriteFile serializes root and writes it to path. If compress is
// true, the container is piped through a bzip2 writer first.
func WriteFile(path string, root *luacode.Prototype, compress bool) error {
	data, err := Marshal(root)
	if err != nil {
		return err
	}
	if compress {
		var buf bytes.Buffer
		w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads a .luabc (optionally bzip2-compressed) file from
// path and decodes its prototype tree. Compression is detected either
// from a ".bz2" suffix or by sniffing the bzip2 magic, so piped or
// extensionless input still loads correctly.
func LoadFile(path string) (*luacode.Prototype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, CompressedSuffix) || looksCompressed(data) {
		r, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return nil, err
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		data = decoded
	}
	return Unmarshal(data)
}

func looksCompressed(data []byte) bool {
	return len(data) >= len(bzip2Magic) && bytes.Equal(data[:len(bzip2Magic)], bzip2Magic)
}
