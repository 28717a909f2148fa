package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Allowed resume extensions.
var allowedResumeExtensions = []string{".pdf", ".docx"}

// ResumeUpload is a resume file received from the browser.
type ResumeUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// validateResume checks the file name and size before the resume is forwarded.
func validateResume(up ResumeUpload, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	allowed := false
	for _, a := range allowedResumeExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %q (allowed: %s)",
			ErrUnsupportedFileType, up.Filename, strings.Join(allowedResumeExtensions, ", "))
	}
	if maxBytes > 0 && up.Size > maxBytes {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, up.Size, maxBytes)
	}
	return nil
}
