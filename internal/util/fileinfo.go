package util

import (
	"os"
	"syscall"
)

// FileInfo identifies one version of a file. Appends keep the inode;
// replacing the file (write to a temp file, rename over) changes it.
type FileInfo struct {
	ModTime int64  // Unix seconds
	Size    int64  // Bytes
	Inode   uint64 // Zero where the platform does not expose it
}

// FileInfoOf extracts size, modification time and inode from stat
func FileInfoOf(stat os.FileInfo) FileInfo {
	info := FileInfo{
		ModTime: stat.ModTime().Unix(),
		Size:    stat.Size(),
	}
	if sys, ok := stat.Sys().(*syscall.Stat_t); ok {
		info.Inode = uint64(sys.Ino)
	}
	return info
}

// GetFileInfo stats path
func GetFileInfo(path string) (FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfoOf(stat), nil
}

// Replaced reports whether next is a different file than prev. Unknown
// inodes never count as a replacement.
func (prev FileInfo) Replaced(next FileInfo) bool {
	return prev.Inode != 0 && next.Inode != 0 && prev.Inode != next.Inode
}
