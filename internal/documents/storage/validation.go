package storage

import (
	"fmt"
	"path"
	"strings"

	"property_portal_backend/platform/apperr"
)

// allowedContentTypes lists the MIME types accepted as intervention documents.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,

	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"text/csv":   true,

	"video/mp4":       true,
	"video/quicktime": true,
}

// NormalizeContentType strips parameters such as charset and lowercases.
func NormalizeContentType(contentType string) string {
	normalized := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(normalized))
}

// Validate checks a file before upload.
func Validate(contentType string, sizeBytes, maxSize int64) error {
	if !allowedContentTypes[NormalizeContentType(contentType)] {
		return apperr.Validation(fmt.Sprintf("content type %q is not allowed", contentType))
	}
	if sizeBytes <= 0 {
		return apperr.Validation("file is empty")
	}
	if maxSize > 0 && sizeBytes > maxSize {
		return apperr.Validation(fmt.Sprintf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, maxSize))
	}
	return nil
}

// CleanFileName keeps the base name of an uploaded file and drops path
// separators a client may send.
func CleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}
