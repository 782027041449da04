package attach

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

var errFound = errors.New("found")

var (
	thumbnailExts = []string{".jpg"}
	videoExts     = []string{".mov", ".mp4"}
)

// FindThumbnail looks for an exported poster frame of shot under dir:
// exact names first, then frame-numbered names, then one folder down, then
// any name starting with the shot name, then a recursive search.
func FindThumbnail(dir, shot string) (string, bool) {
	if shot == "" || dir == "" {
		return "", false
	}
	name := escapeGlob(shot)
	var patterns []string
	for _, level := range []string{"", "*"} {
		for _, suffix := range []string{"", ".0001", ".00000001"} {
			patterns = append(patterns, filepath.Join(dir, level, name+suffix+".jpg"))
		}
	}
	patterns = append(patterns,
		filepath.Join(dir, name+"*.jpg"),
		filepath.Join(dir, "*", name+"*.jpg"),
	)
	if path, ok := firstMatch(patterns); ok {
		return path, true
	}
	return walkFor(dir, thumbnailExts, func(base string) bool { return strings.HasPrefix(base, shot) })
}

// FindVideo looks for an exported movie of shot under dir, preferring the
// sequence/shot.mov layout written by the exporter.
func FindVideo(dir, shot string) (string, bool) {
	if shot == "" || dir == "" {
		return "", false
	}
	name := escapeGlob(shot)
	var patterns []string
	for _, stem := range []string{name, name + ".*", name + "*"} {
		for _, level := range []string{"*", ""} {
			if level == "" && stem == name+".*" {
				continue
			}
			for _, ext := range videoExts {
				patterns = append(patterns, filepath.Join(dir, level, stem+ext))
			}
		}
	}
	if path, ok := firstMatch(patterns); ok {
		return path, true
	}
	return walkFor(dir, videoExts, func(base string) bool { return strings.Contains(base, shot) })
}

func firstMatch(patterns []string) (string, bool) {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0], true
	}
	return "", false
}

// walkFor returns the first file in lexical walk order whose extension is
// in exts and whose base name satisfies match.
func walkFor(dir string, exts []string, match func(base string) bool) (string, bool) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(exts, ext) {
			return nil
		}
		if match(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))) {
			found = path
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return found, true
	}
	return "", false
}

func escapeGlob(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`)
	return replacer.Replace(s)
}

