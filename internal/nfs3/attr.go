package nfs3

import (
	"bytes"

	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
	"github.com/go-nfsd/nfsd3/internal/vfs"
)

func ftypeToWire(t vfs.FileType) uint32 {
	switch t {
	case vfs.TypeReg:
		return FTypeReg
	case vfs.TypeDir:
		return FTypeDir
	case vfs.TypeBlk:
		return FTypeBlk
	case vfs.TypeChr:
		return FTypeChr
	case vfs.TypeLnk:
		return FTypeLnk
	case vfs.TypeSock:
		return FTypeSock
	case vfs.TypeFifo:
		return FTypeFifo
	default:
		return FTypeReg
	}
}

// encodeFattr3 appends the fattr3 encoding of attr (RFC 1813 §2.6).
func encodeFattr3(buf *bytes.Buffer, attr vfs.Attr) error {
	writers := []func() error{
		func() error { return gxdr.WriteUint32(buf, ftypeToWire(attr.Type)) },
		func() error { return gxdr.WriteUint32(buf, attr.Mode) },
		func() error { return gxdr.WriteUint32(buf, attr.Nlink) },
		func() error { return gxdr.WriteUint32(buf, attr.UID) },
		func() error { return gxdr.WriteUint32(buf, attr.GID) },
		func() error { return gxdr.WriteUint64(buf, attr.Size) },
		func() error { return gxdr.WriteUint64(buf, attr.Used) },
		func() error { return gxdr.WriteUint32(buf, attr.RdevMajor) },
		func() error { return gxdr.WriteUint32(buf, attr.RdevMinor) },
		func() error { return gxdr.WriteUint64(buf, attr.FSID) },
		func() error { return gxdr.WriteUint64(buf, uint64(attr.FileID)) },
		func() error { return writeNFSTime(buf, attr.Atime) },
		func() error { return writeNFSTime(buf, attr.Mtime) },
		func() error { return writeNFSTime(buf, attr.Ctime) },
	}
	for _, w := range writers {
		if err := w(); err != nil {
			return err
		}
	}
	return nil
}

func writeNFSTime(buf *bytes.Buffer, t vfs.Time) error {
	if err := gxdr.WriteUint32(buf, t.Seconds); err != nil {
		return err
	}
	return gxdr.WriteUint32(buf, t.Nseconds)
}

// writePostOpAttr encodes a post_op_attr: present=true + fattr3, or
// present=false with no body when attrErr != nil (the back-end
// couldn't supply fresh attributes for this reply).
func writePostOpAttr(buf *bytes.Buffer, attr vfs.Attr, attrErr error) error {
	if attrErr != nil {
		return gxdr.WriteBool(buf, false)
	}
	if err := gxdr.WriteBool(buf, true); err != nil {
		return err
	}
	return encodeFattr3(buf, attr)
}

// writePreOpAttr encodes a pre_op_attr: present=true + the wcc_attr
// subset (size, mtime, ctime), or present=false.
func writePreOpAttr(buf *bytes.Buffer, attr vfs.Attr, attrErr error) error {
	if attrErr != nil {
		return gxdr.WriteBool(buf, false)
	}
	if err := gxdr.WriteBool(buf, true); err != nil {
		return err
	}
	if err := gxdr.WriteUint64(buf, attr.Size); err != nil {
		return err
	}
	if err := writeNFSTime(buf, attr.Mtime); err != nil {
		return err
	}
	return writeNFSTime(buf, attr.Ctime)
}

// writeWccData encodes a wcc_data: pre_op_attr then post_op_attr,
// taken respectively just before and just after the mutating call
// (spec.md invariant 9).
func writeWccData(buf *bytes.Buffer, pre, post vfs.Attr, preErr, postErr error) error {
	if err := writePreOpAttr(buf, pre, preErr); err != nil {
		return err
	}
	return writePostOpAttr(buf, post, postErr)
}

func decodeSattr3(r *bytes.Reader) (vfs.SetAttr, error) {
	var sa vfs.SetAttr

	setMode, err := gxdr.ReadBool(r, "sattr.set_mode")
	if err != nil {
		return sa, err
	}
	if setMode {
		v, err := gxdr.ReadUint32(r, "sattr.mode")
		if err != nil {
			return sa, err
		}
		sa.Mode = &v
	}

	setUID, err := gxdr.ReadBool(r, "sattr.set_uid")
	if err != nil {
		return sa, err
	}
	if setUID {
		v, err := gxdr.ReadUint32(r, "sattr.uid")
		if err != nil {
			return sa, err
		}
		sa.UID = &v
	}

	setGID, err := gxdr.ReadBool(r, "sattr.set_gid")
	if err != nil {
		return sa, err
	}
	if setGID {
		v, err := gxdr.ReadUint32(r, "sattr.gid")
		if err != nil {
			return sa, err
		}
		sa.GID = &v
	}

	setSize, err := gxdr.ReadBool(r, "sattr.set_size")
	if err != nil {
		return sa, err
	}
	if setSize {
		v, err := gxdr.ReadUint64(r, "sattr.size")
		if err != nil {
			return sa, err
		}
		sa.Size = &v
	}

	atimeHow, err := gxdr.ReadUint32(r, "sattr.atime_how")
	if err != nil {
		return sa, err
	}
	if atimeHow == 2 { // SET_TO_CLIENT_TIME
		t, err := readNFSTime(r)
		if err != nil {
			return sa, err
		}
		sa.Atime = &t
	}

	mtimeHow, err := gxdr.ReadUint32(r, "sattr.mtime_how")
	if err != nil {
		return sa, err
	}
	if mtimeHow == 2 {
		t, err := readNFSTime(r)
		if err != nil {
			return sa, err
		}
		sa.Mtime = &t
	}

	return sa, nil
}

func readNFSTime(r *bytes.Reader) (vfs.Time, error) {
	sec, err := gxdr.ReadUint32(r, "time.seconds")
	if err != nil {
		return vfs.Time{}, err
	}
	nsec, err := gxdr.ReadUint32(r, "time.nseconds")
	if err != nil {
		return vfs.Time{}, err
	}
	return vfs.Time{Seconds: sec, Nseconds: nsec}, nil
}
