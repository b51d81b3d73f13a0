// Package pathplan computes deterministic destination paths for the
// surviving representatives. Planning is pure: it derives every path from
// the records, groups, and configuration it is handed and never touches
// the filesystem. Album detection, which does read the destination tree,
// is a separate pre-step the caller runs.
package pathplan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"photocons/config"
	"photocons/rawconv"
	"photocons/types"
)

// shortHashLen is how many leading hex characters of the content hash go
// into destination names for collision-avoidance and auditability.
const shortHashLen = 8

// rawBucket is the destination subdirectory for unconverted RAW files.
const rawBucket = "raw"

// Input is everything the planner consumes.
type Input struct {
	Records  []types.PhotoRecord
	Groups   []types.DuplicateGroup
	DestRoot string

	// Albums maps normalized name tokens to existing destination
	// directories. Files whose source path mentions an album land there
	// instead of the date hierarchy.
	Albums map[string]string
}

// BuildPlan maps every group to a destination path and action. No two
// groups ever plan to the same path: a computed collision gets an
// incrementing suffix, assigned in representative-source-path order so the
// outcome is reproducible across runs.
func BuildPlan(in Input, cfg config.Config) (types.ConsolidationPlan, error) {
	plan := types.ConsolidationPlan{DestRoot: in.DestRoot}

	// Order groups by representative path so suffix assignment is
	// deterministic regardless of grouping order.
	order := make([]int, 0, len(in.Groups))
	for gi := range in.Groups {
		if in.Groups[gi].Representative < 0 {
			return plan, fmt.Errorf("group %d has no representative", in.Groups[gi].ID)
		}
		order = append(order, gi)
	}
	sort.Slice(order, func(a, b int) bool {
		ra := in.Records[in.Groups[order[a]].Representative].SourcePath
		rb := in.Records[in.Groups[order[b]].Representative].SourcePath
		return ra < rb
	})

	taken := make(map[string]bool)

	for _, gi := range order {
		group := in.Groups[gi]
		rep := in.Records[group.Representative]

		dir, action, ext := placement(rep, in.Albums, cfg)
		name := renderName(rep, ext, cfg)

		dest := disambiguate(filepath.Join(in.DestRoot, dir, name), taken)
		taken[dest] = true

		plan.Entries = append(plan.Entries, types.PlanEntry{
			GroupID:     group.ID,
			SourcePath:  rep.SourcePath,
			DestPath:    dest,
			Action:      action,
			ContentHash: rep.ContentHash,
			CaptureTime: rep.CaptureTime,
			Confidence:  rep.TimeConfidence,
		})

		// Non-representative members stay untouched in place but get
		// explicit entries so the manifest records every file's fate.
		for _, member := range group.Members {
			if member == group.Representative {
				continue
			}
			plan.Entries = append(plan.Entries, types.PlanEntry{
				GroupID:     group.ID,
				SourcePath:  in.Records[member].SourcePath,
				DestPath:    dest,
				Action:      types.ActionSkipDuplicate,
				ContentHash: in.Records[member].ContentHash,
			})
		}
	}

	return plan, nil
}

// placement decides the destination directory, the action, and the
// destination extension for a representative.
func placement(rep types.PhotoRecord, albums map[string]string, cfg config.Config) (dir string, action types.Action, ext string) {
	ext = filepath.Ext(rep.SourcePath)
	action = types.ActionCopy
	isRaw := rawconv.IsRawFormat(rep.SourcePath)

	if isRaw && cfg.RawConversion {
		// Converted RAW representatives join the regular hierarchy as
		// JPEGs.
		return dateDir(rep, cfg), types.ActionCopyConvert, ".jpg"
	}

	if isRaw {
		year := cfg.UnknownDir
		if rep.CaptureTime != nil {
			year = rep.CaptureTime.Format("2006")
		}
		return filepath.Join(rawBucket, year), types.ActionCopy, ext
	}

	if album := matchAlbum(rep.SourcePath, albums); album != "" {
		return album, types.ActionCopy, ext
	}

	return dateDir(rep, cfg), types.ActionCopy, ext
}

// dateDir renders the capture date through the configured hierarchy
// layout, falling back to the unknown-date bucket.
func dateDir(rep types.PhotoRecord, cfg config.Config) string {
	if rep.CaptureTime == nil {
		return cfg.UnknownDir
	}
	return rep.CaptureTime.Format(cfg.Hierarchy)
}

// renderName fills the naming template. Tokens: {name} is the original base
// name without extension, {hash} a short form of the content hash, {ext}
// the destination extension.
func renderName(rep types.PhotoRecord, ext string, cfg config.Config) string {
	base := strings.TrimSuffix(filepath.Base(rep.SourcePath), filepath.Ext(rep.SourcePath))
	short := rep.ContentHash
	if len(short) > shortHashLen {
		short = short[:shortHashLen]
	}

	name := cfg.Naming
	name = strings.ReplaceAll(name, "{name}", base)
	name = strings.ReplaceAll(name, "{hash}", short)
	name = strings.ReplaceAll(name, "{ext}", ext)
	return name
}

// disambiguate appends _1, _2, ... before the extension until the path is
// unique within this run.
func disambiguate(dest string, taken map[string]bool) string {
	if !taken[dest] {
		return dest
	}

	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, counter, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}

// DetectAlbums scans the destination root for existing directories and
// builds the token map used for album assignment. Directory names are
// matched case-insensitively, with separators normalized to spaces; words
// shorter than four characters are too ambiguous to match on.
func DetectAlbums(destRoot string) map[string]string {
	albums := make(map[string]string)

	entries, err := os.ReadDir(destRoot)
	if err != nil {
		return albums
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == rawBucket || strings.HasPrefix(name, ".") || name == "temp" || name == "duplicates" {
			continue
		}

		lower := strings.ToLower(name)
		normalized := strings.NewReplacer("_", " ", "-", " ").Replace(lower)

		albums[lower] = name
		albums[normalized] = name

		for _, word := range strings.Fields(normalized) {
			if len(word) > 3 {
				albums[word] = name
			}
		}
	}

	return albums
}

// matchAlbum returns the album directory claimed by a source path, if any.
func matchAlbum(sourcePath string, albums map[string]string) string {
	if len(albums) == 0 {
		return ""
	}

	pathStr := strings.ToLower(sourcePath)
	keys := make([]string, 0, len(albums))
	for key := range albums {
		keys = append(keys, key)
	}
	// Longest keys first so "summer 2019" beats "summer".
	sort.Slice(keys, func(a, b int) bool {
		if len(keys[a]) != len(keys[b]) {
			return len(keys[a]) > len(keys[b])
		}
		return keys[a] < keys[b]
	})

	for _, key := range keys {
		if strings.Contains(pathStr, key) {
			return albums[key]
		}
	}
	return ""
}
