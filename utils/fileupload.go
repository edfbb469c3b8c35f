package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxDocumentSize is 10MB in bytes
	MaxDocumentSize = 10 * 1024 * 1024
	// AllowedDocumentFormat is PDF
	AllowedDocumentFormat = ".pdf"
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateDocumentFile validates the uploaded tender document format and size
func ValidateDocumentFile(fileHeader *multipart.FileHeader) error {
	// Check file size
	if fileHeader.Size > MaxDocumentSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxDocumentSize/(1024*1024)),
		}
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != AllowedDocumentFormat {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Only %s files are allowed", AllowedDocumentFormat),
		}
	}

	return nil
}
