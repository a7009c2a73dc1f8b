package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL or rollback-journal mode.
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

// RegistryDiskUsage returns the bytes used by the SQLite registry at dbPath, sidecar files
// included. An empty path (in-memory registry) uses no disk.
func RegistryDiskUsage(dbPath string) (int64, error) {
	if dbPath == "" {
		return 0, nil
	}
	paths := []string{dbPath}
	for _, suffix := range sqliteSidecars {
		paths = append(paths, dbPath+suffix)
	}
	return DiskUsageBytes(paths...)
}

// DiskUsageBytes returns the total size of the given files and directories (summed recursively).
// Missing and empty paths count as 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
