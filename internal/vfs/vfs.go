// Package vfs defines the capability contract that a concrete
// file-system back-end (an in-memory tree, a mirror of a host
// directory, ...) implements so the NFSv3 handler layer can drive it
// without knowing the storage details.
package vfs

import "context"

// FileID identifies a filesystem object within one back-end. It is
// opaque to callers outside this package and the file-handle converter
// that wraps it for the wire.
type FileID uint64

// FileType mirrors NFSv3's ftype3 (RFC 1813 §2.5).
type FileType uint32

const (
	TypeReg FileType = iota + 1
	TypeDir
	TypeBlk
	TypeChr
	TypeLnk
	TypeSock
	TypeFifo
)

// Time is a POSIX seconds+nanoseconds timestamp, matching NFSv3's
// nfstime3.
type Time struct {
	Seconds  uint32
	Nseconds uint32
}

// Attr is the subset of POSIX metadata NFSv3's fattr3 carries.
type Attr struct {
	Type       FileType
	Mode       uint32
	Nlink      uint32
	UID        uint32
	GID        uint32
	Size       uint64
	Used       uint64
	RdevMajor  uint32
	RdevMinor  uint32
	FSID       uint64
	FileID     FileID
	Atime      Time
	Mtime      Time
	Ctime      Time
}

// SetAttr carries the optional fields SETATTR, CREATE, MKDIR and
// SYMLINK may set. A nil pointer field means "leave unchanged" /
// "not supplied".
type SetAttr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *Time
	Mtime *Time
}

// StableHow mirrors NFSv3's stable_how (RFC 1813 §3.3.7).
type StableHow uint32

const (
	Unstable StableHow = iota
	DataSync
	FileSync
)

// CreateHow mirrors NFSv3's createmode3 (RFC 1813 §3.3.8).
type CreateHow uint32

const (
	Unchecked CreateHow = iota
	Guarded
	Exclusive
)

// FSStat mirrors NFSv3's FSSTAT3res body.
type FSStat struct {
	TotalBytes, FreeBytes, AvailBytes    uint64
	TotalFiles, FreeFiles, AvailFiles    uint64
	InvarSeconds                         uint32
}

// FSInfo mirrors NFSv3's FSINFO3res body: the capability/limit set
// advertised to clients on mount.
type FSInfo struct {
	RtMax, RtPref, RtMult   uint32
	WtMax, WtPref, WtMult   uint32
	DtPref                  uint32
	MaxFileSize             uint64
	TimeDelta               Time
	Properties              uint32
}

// DirEntry is one plain READDIR entry.
type DirEntry struct {
	FileID FileID
	Name   string
	Cookie uint64
}

// DirEntryPlus is one READDIRPLUS entry: the plain fields plus the
// attributes and file id needed to mint a handle without a follow-up
// LOOKUP.
type DirEntryPlus struct {
	DirEntry
	Attr     Attr
	ChildID  FileID
}

// NextResult is the outcome of one iterator step: either the next
// entry, end-of-sequence, or a terminal back-end error (the nfs3
// package maps it to an nfsstat3; this package only needs to signal
// failure, not name the NFS status).
type NextResult[T any] struct {
	Entry T
	Eof   bool
	Err   error
}

// Ok wraps an entry as a successful step.
func Ok[T any](entry T) NextResult[T] { return NextResult[T]{Entry: entry} }

// EofResult signals iterator exhaustion.
func EofResult[T any]() NextResult[T] { return NextResult[T]{Eof: true} }

// ErrResult wraps a terminal iterator failure.
func ErrResult[T any](err error) NextResult[T] { return NextResult[T]{Err: err} }

// ReadDirIterator yields plain directory entries one at a time.
type ReadDirIterator interface {
	Next(ctx context.Context) NextResult[DirEntry]
}

// ReadDirPlusIterator yields directory entries with attributes and a
// child file id. Any ReadDirPlusIterator can serve as a ReadDirIterator
// via Promote, which projects away the extra fields — this is the
// "back-ends auto-promote" rule: a back-end only has to implement the
// plus iterator.
type ReadDirPlusIterator interface {
	Next(ctx context.Context) NextResult[DirEntryPlus]
}

// Promote adapts a ReadDirPlusIterator into a ReadDirIterator by
// dropping the attribute and child-id fields from each entry.
func Promote(it ReadDirPlusIterator) ReadDirIterator {
	return &promotedIterator{it: it}
}

type promotedIterator struct {
	it ReadDirPlusIterator
}

func (p *promotedIterator) Next(ctx context.Context) NextResult[DirEntry] {
	r := p.it.Next(ctx)
	if r.Err != nil {
		return ErrResult[DirEntry](r.Err)
	}
	if r.Eof {
		return EofResult[DirEntry]()
	}
	return Ok(r.Entry.DirEntry)
}

// FileSystem is the capability contract a back-end fulfils. All
// methods are safe for concurrent use: handlers may be invoked from
// many connections' goroutines simultaneously.
type FileSystem interface {
	RootDir() FileID

	GetAttr(ctx context.Context, id FileID) (Attr, error)
	SetAttr(ctx context.Context, id FileID, attr SetAttr, guard *Time) (pre, post Attr, err error)

	Lookup(ctx context.Context, dir FileID, name string) (FileID, error)

	Read(ctx context.Context, id FileID, offset uint64, count uint32) (data []byte, eof bool, err error)
	Write(ctx context.Context, id FileID, offset uint64, stable StableHow, data []byte) (committed StableHow, writeverf uint64, err error)

	Create(ctx context.Context, dir FileID, name string, how CreateHow, attr SetAttr, verifier uint64) (FileID, error)
	Mkdir(ctx context.Context, dir FileID, name string, attr SetAttr) (FileID, error)
	Symlink(ctx context.Context, dir FileID, name, target string, attr SetAttr) (FileID, error)
	Mknod(ctx context.Context, dir FileID, name string, ftype FileType, major, minor uint32, attr SetAttr) (FileID, error)

	Remove(ctx context.Context, dir FileID, name string) error
	Rmdir(ctx context.Context, dir FileID, name string) error
	Rename(ctx context.Context, fromDir FileID, fromName string, toDir FileID, toName string) error
	Link(ctx context.Context, id FileID, dir FileID, name string) error

	Readlink(ctx context.Context, id FileID) (string, error)

	ReadDirPlus(ctx context.Context, dir FileID, startCookie uint64) (ReadDirPlusIterator, error)

	FSStat(ctx context.Context, id FileID) (FSStat, error)
	FSInfo(ctx context.Context, id FileID) (FSInfo, error)

	Commit(ctx context.Context, id FileID, offset uint64, count uint32) (writeverf uint64, err error)
}

// ReadDir returns a plain iterator for dir, derived from ReadDirPlus via
// Promote so a back-end need only implement the plus variant.
func ReadDir(ctx context.Context, fs FileSystem, dir FileID, startCookie uint64) (ReadDirIterator, error) {
	plus, err := fs.ReadDirPlus(ctx, dir, startCookie)
	if err != nil {
		return nil, err
	}
	return Promote(plus), nil
}
