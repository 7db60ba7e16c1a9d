package rpkg

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var archiveNamePattern = regexp.MustCompile(`^chunk(\d+)(?:patch(\d+))?$`)

// parseArchiveName extracts the chunk and patch numbers from an archive
// base name like "chunk0" or "chunk0patch2". Patch is -1 for base
// archives.
func parseArchiveName(name string) (chunk, patch int, ok bool) {
	m := archiveNamePattern.FindStringSubmatch(strings.ToLower(name))
	if m == nil {
		return 0, 0, false
	}
	chunk, _ = strconv.Atoi(m[1])
	patch = -1
	if m[2] != "" {
		patch, _ = strconv.Atoi(m[2])
	}
	return chunk, patch, true
}

// DiscoverArchives enumerates the .rpkg files in a game runtime directory
// and returns their paths in resolution order: within each chunk, higher
// patch numbers come first so that the newest patch wins the locator's
// first-match rule. Ordering is derived from the parsed names, never from
// directory enumeration order.
func DiscoverArchives(runtimeDir string) ([]string, error) {
	dirEntries, err := os.ReadDir(runtimeDir)
	if err != nil {
		return nil, fmt.Errorf("reading runtime directory: %w", err)
	}

	type candidate struct {
		path  string
		chunk int
		patch int
	}

	var found []candidate
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".rpkg") {
			continue
		}
		base := strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))
		chunk, patch, ok := parseArchiveName(base)
		if !ok {
			continue
		}
		found = append(found, candidate{
			path:  filepath.Join(runtimeDir, de.Name()),
			chunk: chunk,
			patch: patch,
		})
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no archives found in %s", runtimeDir)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].chunk != found[j].chunk {
			return found[i].chunk < found[j].chunk
		}
		return found[i].patch > found[j].patch
	})

	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.path
	}
	return paths, nil
}

// OpenAll opens every archive in order. On failure it closes the ones
// already opened and returns the error.
func OpenAll(paths []string) ([]*Archive, error) {
	archives := make([]*Archive, 0, len(paths))
	for _, path := range paths {
		a, err := Open(path)
		if err != nil {
			CloseAll(archives)
			return nil, fmt.Errorf("opening archive %s: %w", path, err)
		}
		archives = append(archives, a)
	}
	return archives, nil
}

// CloseAll closes every archive, returning the first error seen.
func CloseAll(archives []*Archive) error {
	var firstErr error
	for _, a := range archives {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
