// Package rawconv invokes external tools (exiftool, dcraw) to turn RAW
// camera files into standard JPEG bytes. It is treated as an opaque, slow,
// possibly-failing collaborator: callers get bytes or an error, never a
// partial result.
package rawconv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"photocons/logging"
)

// Converter handles RAW image conversion through external tools.
type Converter struct {
	DebugMode bool
}

// NewConverter creates a new Converter instance
func NewConverter(debugMode bool) *Converter {
	return &Converter{
		DebugMode: debugMode,
	}
}

// Convert decodes a RAW file into JPEG bytes. Conversion methods are tried
// in order of preference: embedded preview extraction first (best match for
// camera JPGs), then dcraw demosaicing fallbacks.
func (c *Converter) Convert(ctx context.Context, path string) ([]byte, error) {
	tempJpg := filepath.Join(os.TempDir(), fmt.Sprintf("photocons_conv_%d.jpg", time.Now().UnixNano()))
	defer os.Remove(tempJpg) // Clean up temp file when done

	methods := []struct {
		name string
		fn   func(context.Context, string, string) error
	}{
		{"extractLargePreviewWithExiftool", c.extractLargePreviewWithExiftool},
		{"extractPreviewWithExiftool", c.extractPreviewWithExiftool},
		{"convertWithDcrawAutoBright", c.convertWithDcrawAutoBright},
		{"convertWithDcrawCameraWB", c.convertWithDcrawCameraWB},
		{"extractAnyEmbeddedJpg", c.extractAnyEmbeddedJpg},
	}

	var lastError error
	for _, method := range methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if c.DebugMode {
			logging.DebugLog("Trying RAW conversion method: %s for %s", method.name, path)
		}

		err := method.fn(ctx, path, tempJpg)
		if err != nil {
			if c.DebugMode {
				logging.DebugLog("Method %s failed: %v", method.name, err)
			}
			lastError = err
			continue
		}

		// Check the output file was created and has content
		info, err := os.Stat(tempJpg)
		if err != nil || info.Size() == 0 {
			continue
		}

		data, err := os.ReadFile(tempJpg)
		if err != nil {
			lastError = err
			continue
		}

		if c.DebugMode {
			logging.DebugLog("Successfully converted RAW using %s: %s", method.name, path)
		}
		return data, nil
	}

	if lastError == nil {
		lastError = fmt.Errorf("no conversion method produced output")
	}
	return nil, fmt.Errorf("failed to convert RAW file %s: %v", path, lastError)
}

// extractLargePreviewWithExiftool pulls the largest embedded preview, which
// CR3 files in particular need.
func (c *Converter) extractLargePreviewWithExiftool(ctx context.Context, path, outputPath string) error {
	cmd := exec.CommandContext(ctx, "exiftool", "-b", "-LargePreviewImage", "-o", outputPath, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("exiftool failed: %v, output: %s", err, string(output))
	}
	return verifyOutput(outputPath)
}

// extractPreviewWithExiftool extracts the standard embedded preview image.
func (c *Converter) extractPreviewWithExiftool(ctx context.Context, path, outputPath string) error {
	cmd := exec.CommandContext(ctx, "exiftool", "-b", "-PreviewImage", "-o", outputPath, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("exiftool failed: %v, output: %s", err, string(output))
	}
	return verifyOutput(outputPath)
}

// convertWithDcrawAutoBright uses dcraw with auto-brightness, which often
// matches camera output.
func (c *Converter) convertWithDcrawAutoBright(ctx context.Context, path, outputPath string) error {
	// -w = use camera white balance
	// -a = auto-brightness (mimics camera)
	// -q 3 = high-quality interpolation
	cmd := exec.CommandContext(ctx, "dcraw", "-w", "-a", "-q", "3", "-O", outputPath, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("dcraw failed: %v, output: %s", err, string(output))
	}
	return verifyOutput(outputPath)
}

// convertWithDcrawCameraWB uses dcraw with camera white balance only.
func (c *Converter) convertWithDcrawCameraWB(ctx context.Context, path, outputPath string) error {
	cmd := exec.CommandContext(ctx, "dcraw", "-w", "-q", "3", "-O", outputPath, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("dcraw (camera wb) failed: %v, output: %s", err, string(output))
	}
	return verifyOutput(outputPath)
}

// extractAnyEmbeddedJpg tries every known embedded-image tag as a last
// resort before giving up.
func (c *Converter) extractAnyEmbeddedJpg(ctx context.Context, path, outputPath string) error {
	tags := []string{
		"JpgFromRaw",
		"OtherImage",
		"ThumbnailImage",
		"FullPreviewImage",
		"EmbeddedImage",
	}

	for _, tag := range tags {
		cmd := exec.CommandContext(ctx, "exiftool", "-b", "-"+tag, "-o", outputPath, path)
		output, err := cmd.CombinedOutput()
		if err != nil {
			if c.DebugMode {
				logging.DebugLog("Exiftool fallback error for tag %s: %v, output: %s", tag, err, string(output))
			}
			continue
		}

		if verifyOutput(outputPath) == nil {
			return nil
		}
	}

	return fmt.Errorf("no embedded JPG data found")
}

func verifyOutput(outputPath string) error {
	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to stat output file: %v", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("extracted output is empty")
	}
	return nil
}

// IsRawFormat checks if a file is in RAW format
func IsRawFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedRawFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// SupportedRawFormats returns a list of supported RAW formats
func SupportedRawFormats() []string {
	return []string{".dng", ".raf", ".arw", ".nef", ".cr2", ".cr3", ".nrw", ".srf", ".orf", ".rw2", ".pef", ".raw"}
}
