// Package fingerprint turns source files into immutable PhotoRecords:
// a cryptographic content hash for exact-duplicate detection, normalized
// perceptual hashes for cheap near-duplicate screening, and an optional
// learned embedding for the ambiguous cases in between.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"photocons/logging"
	"photocons/rawconv"
	"photocons/types"
)

// RawConverter is the external RAW conversion collaborator.
type RawConverter interface {
	Convert(ctx context.Context, path string) ([]byte, error)
}

// Extractor computes PhotoRecords. It holds no per-file state and is safe
// for concurrent use by the scanner's worker pool.
type Extractor struct {
	Converter RawConverter
	Embedder  *Embedder
	DebugMode bool
}

// Extract produces the PhotoRecord for one file. Failures never abort the
// batch: an unreadable or unconvertible file comes back as a record marked
// Unreadable, carrying the error for the manifest.
func (e *Extractor) Extract(ctx context.Context, path string) types.PhotoRecord {
	record := types.PhotoRecord{
		SourcePath: path,
		Format:     fileFormat(path),
	}

	info, err := os.Stat(path)
	if err != nil {
		return unreadable(record, fmt.Errorf("cannot stat file %s: %w", path, types.ErrUnreadableFile))
	}
	record.FileSize = info.Size()

	contentHash, err := hashFileContents(path)
	if err != nil {
		return unreadable(record, fmt.Errorf("cannot hash file %s: %w", path, types.ErrUnreadableFile))
	}
	record.ContentHash = contentHash

	// Decode to a normalized grayscale image for perceptual hashing.
	// RAW files go through the external converter first.
	img, err := e.decode(ctx, path)
	if err != nil {
		img.Close()
		return unreadable(record, err)
	}
	defer img.Close()

	record.Width = img.Cols()
	record.Height = img.Rows()

	avgHash, err := ComputeAverageHash(img)
	if err != nil {
		return unreadable(record, fmt.Errorf("cannot compute average hash for %s: %w", path, types.ErrUnreadableFile))
	}
	record.AverageHash = avgHash

	pHash, err := ComputePerceptualHash(img)
	if err != nil {
		return unreadable(record, fmt.Errorf("cannot compute perceptual hash for %s: %w", path, types.ErrUnreadableFile))
	}
	record.PerceptualHash = pHash

	if e.Embedder != nil {
		embedding, err := e.Embedder.Embed(img)
		if err != nil {
			// The embedding is an optional signal; hashing already
			// succeeded, so the record stays groupable without it.
			if e.DebugMode {
				logging.LogWarning("Embedding failed for %s: %v", path, err)
			}
		} else {
			record.Embedding = embedding
		}
	}

	if e.DebugMode {
		logging.DebugLog("Fingerprinted %s - avgHash: %s, pHash: %s", path, avgHash, pHash)
	}

	return record
}

// decode loads a grayscale image for hashing, converting RAW files through
// the external collaborator.
func (e *Extractor) decode(ctx context.Context, path string) (gocv.Mat, error) {
	if rawconv.IsRawFormat(path) {
		if e.Converter == nil {
			return gocv.NewMat(), fmt.Errorf("no converter available for %s: %w", path, types.ErrConversion)
		}

		data, err := e.Converter.Convert(ctx, path)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("converting %s: %w: %v", path, types.ErrConversion, err)
		}

		img, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
		if err != nil || img.Empty() {
			return gocv.NewMat(), fmt.Errorf("decoding converted output of %s: %w", path, types.ErrConversion)
		}
		return img, nil
	}

	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return img, fmt.Errorf("failed to load image %s: %w", path, types.ErrUnreadableFile)
	}
	return img, nil
}

// hashFileContents computes the SHA-256 digest of the raw bytes.
func hashFileContents(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func unreadable(record types.PhotoRecord, err error) types.PhotoRecord {
	record.Unreadable = true
	record.Err = err
	logging.LogFileProcessed(record.SourcePath, false, err.Error())
	return record
}

func fileFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
