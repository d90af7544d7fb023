package export

import (
	"bytes"
	"io/fs"
	"time"

	"github.com/mholt/archives"
)

// memInfo describes an in-memory blob as a regular file.
type memInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (m memInfo) Name() string       { return m.name }
func (m memInfo) Size() int64        { return m.size }
func (m memInfo) Mode() fs.FileMode  { return 0o644 }
func (m memInfo) ModTime() time.Time { return m.modTime }
func (m memInfo) IsDir() bool        { return false }
func (m memInfo) Sys() any           { return nil }

type memFile struct {
	*bytes.Reader
	info memInfo
}

func (f memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f memFile) Close() error               { return nil }

func memoryFile(name string, data []byte, modTime time.Time) archives.FileInfo {
	if modTime.IsZero() {
		modTime = time.Now()
	}
	info := memInfo{name: name, size: int64(len(data)), modTime: modTime}
	return archives.FileInfo{
		FileInfo:      info,
		NameInArchive: name,
		Open: func() (fs.File, error) {
			return memFile{Reader: bytes.NewReader(data), info: info}, nil
		},
	}
}
