package style

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ReadImage returns the raw bytes and MIME type behind a speaker image
// reference: either a data: URL or a local file path.
func ReadImage(src string) ([]byte, string, error) {
	if src == "" {
		return nil, "", fmt.Errorf("empty image source")
	}
	if strings.HasPrefix(src, "data:") {
		return decodeDataURL(src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, "", fmt.Errorf("read image %s: %w", src, err)
	}
	return data, http.DetectContentType(data), nil
}

func decodeDataURL(src string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	mime, _, _ := strings.Cut(meta, ";")
	if !strings.HasSuffix(meta, ";base64") {
		return []byte(payload), mime, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}
