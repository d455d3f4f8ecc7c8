package catalog

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SnapshotInfo describes one backup under the backups directory. Snapshot IDs
// are ULIDs, so lexicographic order is creation order.
type SnapshotInfo struct {
	ID      string
	Dir     string
	Created time.Time
}

// Snapshot copies the catalog file and every rendered HTML file into
// backups/<ulid>/. It is taken before any bulk destructive operation and can
// be requested on its own.
func Snapshot(backupDir, catalogPath, outputDir string) (SnapshotInfo, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("generate snapshot id: %w", err)
	}

	dir := filepath.Join(backupDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SnapshotInfo{}, fmt.Errorf("create snapshot dir: %w", err)
	}

	if err := copyFile(catalogPath, filepath.Join(dir, filepath.Base(catalogPath))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return SnapshotInfo{}, fmt.Errorf("snapshot catalog: %w", err)
	}
	if err := copyHTML(outputDir, dir); err != nil {
		return SnapshotInfo{}, fmt.Errorf("snapshot rendered files: %w", err)
	}

	return SnapshotInfo{ID: id.String(), Dir: dir, Created: ulid.Time(id.Time())}, nil
}

// ListSnapshots returns the available backups, newest last.
func ListSnapshots(backupDir string) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}

	var out []SnapshotInfo
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		id, err := ulid.Parse(ent.Name())
		if err != nil {
			continue
		}
		out = append(out, SnapshotInfo{
			ID:      ent.Name(),
			Dir:     filepath.Join(backupDir, ent.Name()),
			Created: ulid.Time(id.Time()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Restore copies a snapshot's catalog file and rendered HTML back into place,
// overwriting whatever is there.
func Restore(backupDir, id, catalogPath, outputDir string) error {
	dir := filepath.Join(backupDir, id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("snapshot %s: %w", id, err)
	}

	snapCatalog := filepath.Join(dir, filepath.Base(catalogPath))
	if err := copyFile(snapCatalog, catalogPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("restore catalog: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := copyHTML(dir, outputDir); err != nil {
		return fmt.Errorf("restore rendered files: %w", err)
	}
	return nil
}

// Clear empties the catalog. Callers snapshot first; this is the nuke path.
func (c *Catalog) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Posts = nil
	return c.save()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyHTML(srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".html") {
			continue
		}
		if err := copyFile(filepath.Join(srcDir, ent.Name()), filepath.Join(dstDir, ent.Name())); err != nil {
			return err
		}
	}
	return nil
}
