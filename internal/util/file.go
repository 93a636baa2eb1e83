package util

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"strings"
)

// SniffMimeType peeks at the head of r and reports its detected MIME type if
// it matches one of allowedTypes (a prefix such as "text/" or a full type).
// The returned reader still yields the full content.
func SniffMimeType(r io.Reader, allowedTypes []string) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, err
	}

	mimeType := http.DetectContentType(head)
	if IsAllowedType(mimeType, allowedTypes) {
		return mimeType, br, nil
	}
	return mimeType, br, errors.New("invalid file type: " + mimeType)
}

func IsAllowedType(mimeType string, allowedTypes []string) bool {
	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return true
		}
	}
	return false
}
