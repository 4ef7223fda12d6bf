package logtrack

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// FileState describes what happened to a tracked path since the file
// currently open for it was opened.
type FileState int

const (
	// NoChange: the file is unchanged or has grown.
	NoChange FileState = iota
	// Truncated: same file, but it is now shorter than the read offset.
	Truncated
	// Deleted: nothing exists at the path anymore.
	Deleted
	// Replaced: a different file now exists at the path.
	Replaced
)

func (s FileState) String() string {
	switch s {
	case NoChange:
		return "nochange"
	case Truncated:
		return "truncated"
	case Deleted:
		return "deleted"
	case Replaced:
		return "replaced"
	}
	return "unknown"
}

// FileIdentity is the (device, inode) pair of an open file.
type FileIdentity struct {
	Dev uint64
	Ino uint64
}

// classify compares the file at path with the open file f, read up to
// offset. A nil f means the previous file was closed without a successor
// being opened: the path is Deleted while missing and Replaced once
// something exists there again. Stat failures other than "not found"
// are reported as Deleted together with the error so callers can log
// them.
func classify(path string, f *os.File, offset int64) (FileState, error) {
	pathInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Deleted, nil
		}
		return Deleted, err
	}
	if f == nil {
		return Replaced, nil
	}

	fileInfo, err := f.Stat()
	if err != nil {
		return Deleted, err
	}

	if !os.SameFile(pathInfo, fileInfo) {
		return Replaced, nil
	}

	// Truncation cannot be detected on pipes.
	if !seekable(f) {
		return NoChange, nil
	}
	if offset > fileInfo.Size() {
		return Truncated, nil
	}
	return NoChange, nil
}

func seekable(f *os.File) bool {
	_, err := f.Seek(0, io.SeekCurrent)
	return err == nil
}
