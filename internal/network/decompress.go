// internal/network/decompress.go
package network

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// closeWrapper closes both the decompression reader and the original body.
type closeWrapper struct {
	io.Reader
	closer       io.Closer
	originalBody io.ReadCloser
}

func (w *closeWrapper) Close() error {
	var err1 error
	if w.closer != nil {
		err1 = w.closer.Close()
	}
	err2 := w.originalBody.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// DecompressBody returns a reader that decodes resp.Body according to its
// Content-Encoding. Unknown or absent encodings return the body unchanged.
// Closing the returned reader closes the original body.
func DecompressBody(resp *http.Response) (io.ReadCloser, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return &closeWrapper{Reader: reader, closer: reader, originalBody: resp.Body}, nil
	case "deflate":
		reader, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib reader: %w", err)
		}
		return &closeWrapper{Reader: reader, closer: reader, originalBody: resp.Body}, nil
	case "br":
		return &closeWrapper{Reader: brotli.NewReader(resp.Body), originalBody: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}
