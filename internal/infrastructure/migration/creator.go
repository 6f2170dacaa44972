package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// versionWidth is the zero padding of sequential migration versions
const versionWidth = 6

// Entry is one migration found in a directory
type Entry struct {
	Version uint
	Name    string
	HasDown bool
}

// String returns the file base name, e.g. "000003_create_metering"
func (e Entry) String() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, e.Version, e.Name)
}

// Pair is a newly created up/down file pair
type Pair struct {
	Entry
	UpPath   string
	DownPath string
}

// Scan lists the migrations in dir ordered by version. A missing dir has none.
func Scan(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint]*Entry)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		version, name, direction, ok := parseFileName(f.Name())
		if !ok {
			continue
		}
		e, seen := byVersion[version]
		if !seen {
			e = &Entry{Version: version, Name: name}
			byVersion[version] = e
		}
		if direction == "down" {
			e.HasDown = true
		}
	}

	entries := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// Create writes the next up/down pair in dir, numbered one past the highest existing version
func Create(dir, name, description string) (*Pair, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	var next uint = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	pair := &Pair{Entry: Entry{Version: next, Name: slug, HasDown: true}}
	pair.UpPath = filepath.Join(dir, pair.String()+".up.sql")
	pair.DownPath = filepath.Join(dir, pair.String()+".down.sql")

	if description == "" {
		description = name
	}
	up := fmt.Sprintf("-- Migration: %s\n-- Description: %s\n\n", slug, description)
	down := fmt.Sprintf("-- Migration: %s (Rollback)\n\n", slug)

	if err := os.WriteFile(pair.UpPath, []byte(up), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write up migration: %w", err)
	}
	if err := os.WriteFile(pair.DownPath, []byte(down), 0o644); err != nil {
		_ = os.Remove(pair.UpPath)
		return nil, fmt.Errorf("failed to write down migration: %w", err)
	}
	return pair, nil
}

// parseFileName splits "000001_create_ledger.up.sql" into its parts
func parseFileName(file string) (version uint, name, direction string, ok bool) {
	base, found := strings.CutSuffix(file, ".sql")
	if !found {
		return 0, "", "", false
	}
	switch {
	case strings.HasSuffix(base, ".up"):
		direction = "up"
	case strings.HasSuffix(base, ".down"):
		direction = "down"
	default:
		return 0, "", "", false
	}
	base = strings.TrimSuffix(base, "."+direction)

	digits, name, found := strings.Cut(base, "_")
	if !found || name == "" {
		return 0, "", "", false
	}
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, "", "", false
	}
	return uint(v), name, direction, true
}

// slugify lowercases name and joins its words with single underscores
func slugify(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	return strings.Join(fields, "_")
}
