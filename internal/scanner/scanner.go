// Package scanner reads exported source-file CSVs and extracts the Boost
// headers each file includes.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var includePattern = regexp.MustCompile(`#include\s*[<"]\s*(boost/[^>"]+)[>"]`)

// ExtractIncludes returns every boost/... header included by content, in
// order of appearance. Duplicates are kept: each occurrence is one usage.
func ExtractIncludes(content string) []string {
	if content == "" {
		return nil
	}
	var headers []string
	for _, m := range includePattern.FindAllStringSubmatch(content, -1) {
		header := strings.TrimSpace(m[1])
		if header == "" {
			continue
		}
		headers = append(headers, header)
	}
	return headers
}

// InputPrefixes are the file name prefixes of BigQuery exports and GitHub
// API dumps.
var InputPrefixes = []string{"bq-results-", "github-api-results-"}

// FindInputFiles walks dir recursively and returns the sorted paths of all
// regular files whose name starts with one of InputPrefixes.
func FindInputFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("missing data directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", dir)
	}

	seen := make(map[string]bool)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		for _, prefix := range InputPrefixes {
			if strings.HasPrefix(name, prefix) {
				seen[path] = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
