package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/pkg/file"
	"github.com/dustin/go-humanize"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
)

// FileInfo describes one stored file.
type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	HumanSize string    `json:"human_size"`
	ModTime   time.Time `json:"modified_at"`
}

// Folder is a flat directory of user files such as uploads or outputs.
type Folder struct {
	root string
}

func NewFolder(root string) (*Folder, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("folder root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create folder %s: %w", root, err)
	}
	return &Folder{root: root}, nil
}

func (f *Folder) Root() string {
	return f.root
}

// Resolve maps a bare file name onto a path inside the folder. Names with
// directory parts, parent references or absolute paths are rejected.
func (f *Folder) Resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		filepath.IsAbs(name) ||
		strings.ContainsAny(name, `/\`) ||
		strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(f.root, name), nil
}

// Save stores r under the sanitized form of name and returns the stored name.
func (f *Folder) Save(name string, r io.Reader) (string, error) {
	safe := file.SecureFilename(name)
	path, err := f.Resolve(safe)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(f.root, "."+safe+".*.part")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", safe, err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", safe, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close %s: %w", safe, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("store %s: %w", safe, err)
	}
	return safe, nil
}

// List returns the regular files of the folder, newest first. Partial uploads
// are skipped.
func (f *Folder) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, err
	}

	ret := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || isPartial(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		ret = append(ret, FileInfo{
			Name:      entry.Name(),
			Size:      info.Size(),
			HumanSize: humanize.Bytes(uint64(info.Size())),
			ModTime:   info.ModTime(),
		})
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if !ret[i].ModTime.Equal(ret[j].ModTime) {
			return ret[i].ModTime.After(ret[j].ModTime)
		}
		return ret[i].Name < ret[j].Name
	})
	return ret, nil
}

// Names returns the file names of List.
func (f *Folder) Names() ([]string, error) {
	files, err := f.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, info := range files {
		names[i] = info.Name
	}
	return names, nil
}

// Clear removes everything inside the folder and returns the number of removed entries.
func (f *Folder) Clear() (int, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(f.root, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (f *Folder) Delete(name string) error {
	path, err := f.Resolve(name)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// Sweep removes files not modified within maxAge and returns their names.
func (f *Folder) Sweep(maxAge time.Duration) ([]string, error) {
	stale, err := file.FindOlderThan(f.root, time.Now().Add(-maxAge))
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0, len(stale))
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, filepath.Base(path))
	}
	return removed, nil
}

func isPartial(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".part")
}
