package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedEncoding is returned for a Content-Encoding the sender does
// not decode, including stacked encodings such as "gzip, br".
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// decodeContent undoes a single Content-Encoding. The decoded body is limited
// to maxBody bytes, 0 means unlimited.
func decodeContent(data []byte, encoding string, maxBody int) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return readDecoded(gr, maxBody)
	case "deflate":
		// servers send both raw and zlib wrapped streams under this name
		decoded, err := readDecoded(flate.NewReader(bytes.NewReader(data)), maxBody)
		if err == nil || errors.Is(err, ErrBodyTooLarge) {
			return decoded, err
		}
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return readDecoded(zr, maxBody)
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return readDecoded(zr.IOReadCloser(), maxBody)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

func readDecoded(r io.ReadCloser, maxBody int) ([]byte, error) {
	defer func() { _ = r.Close() }()
	return readToEOF(r, maxBody)
}

// decodeBody replaces a compressed body with its decoded form and rewrites
// Content-Encoding and Content-Length to match, since the browser takes a
// fulfilled body as-is. A body that does not decode, or decodes past
// maxBody bytes, is left untouched.
func decodeBody(resp *Response, maxBody int) {
	encoding := resp.GetHeader("Content-Encoding")
	if encoding == "" || strings.EqualFold(encoding, "identity") || len(resp.Body) == 0 {
		return
	}
	decoded, err := decodeContent(resp.Body, encoding, maxBody)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedEncoding) {
			log.Printf("transport: body left %s encoded: %v", encoding, err)
		}
		return
	}

	resp.Body = decoded
	resp.Headers.Remove("Content-Encoding")
	if resp.GetHeader("Content-Length") != "" {
		resp.Headers.Set("Content-Length", strconv.Itoa(len(decoded)))
	}
}
