package ipf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// inflateRaw decompresses a raw DEFLATE stream (no zlib/gzip framing).
// The output is bounded to uncompressedSize: a corrupt or adversarial
// entry whose stream expands past its declared size is rejected as
// ErrDecompressionMismatch rather than allowed to grow the buffer
// without limit.
func inflateRaw(data []byte, uncompressedSize uint32) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	buf := bytes.NewBuffer(make([]byte, 0, uncompressedSize))
	if _, err := io.CopyN(buf, fr, int64(uncompressedSize)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ipf: inflate: %w", err)
	}

	var probe [1]byte
	if n, _ := fr.Read(probe[:]); n > 0 {
		return nil, ErrDecompressionMismatch
	}

	return buf.Bytes(), nil
}
