package scanner

import (
	"path/filepath"
	"strings"

	"photocons/rawconv"
)

// IsImageFile checks if a file extension belongs to an image file
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".heic":
		return true
	case ".tif", ".tiff":
		return true
	default:
		return rawconv.IsRawFormat(path)
	}
}

// IsTiffFormat checks if a file is in TIF format
func IsTiffFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

// GetFileFormat returns the lowercase file extension without the dot
func GetFileFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
