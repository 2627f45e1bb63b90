package domain

import (
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

var imageExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".svg", ".tiff", ".tif",
}

// FileHandle is a local file selected for upload.
type FileHandle struct {
	Name      string
	MediaType string
	Path      string
}

// NewFileHandle describes the file at path, guessing its media type from
// the extension.
func NewFileHandle(path string) FileHandle {
	name := filepath.Base(path)
	return FileHandle{
		Name:      name,
		MediaType: mime.TypeByExtension(strings.ToLower(filepath.Ext(name))),
		Path:      path,
	}
}

// Open opens the file for reading.
func (f FileHandle) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// IsImageFile reports whether f is an image by media type or extension.
func IsImageFile(f FileHandle) bool {
	if strings.HasPrefix(strings.ToLower(f.MediaType), "image/") {
		return true
	}
	name := strings.ToLower(f.Name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Admission is the outcome of filtering a file selection.
type Admission struct {
	// File is the first non-image file, nil if there was none.
	File *FileHandle
	// Rejected counts the image files discarded.
	Rejected int
}

// AllRejected reports whether every selected file was an image.
func (a Admission) AllRejected() bool {
	return a.File == nil && a.Rejected > 0
}

// AdmitFiles keeps the first non-image file and counts discarded images.
// Image uploads are refused client-side.
func AdmitFiles(files []FileHandle) Admission {
	var result Admission
	for i := range files {
		if IsImageFile(files[i]) {
			result.Rejected++
			continue
		}
		if result.File == nil {
			f := files[i]
			result.File = &f
		}
	}
	return result
}
