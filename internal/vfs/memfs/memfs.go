package memfs

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-nfsd/nfsd3/internal/vfs"
)

const rootID vfs.FileID = 1

type node struct {
	mu sync.RWMutex

	id       vfs.FileID
	parentID vfs.FileID
	ftype    vfs.FileType
	mode     uint32
	uid, gid uint32
	content  []byte
	target   string // symlink target
	children map[string]vfs.FileID
	order    []string // insertion order, for stable readdir

	atime, mtime, ctime time.Time

	createVerifier     uint64
	hasCreateVerifier  bool
}

// FS is an in-memory FileSystem back-end. The id-to-node map is guarded
// by FS.mu and each node's fields by that node's own mutex; this
// server's concurrency model expects the back-end to serialize its own
// mutations (spec.md §5).
type FS struct {
	mu       sync.RWMutex
	nodes    map[vfs.FileID]*node
	nextID   atomic.Uint64
	writeVerf uint64
}

// New builds an FS seeded from cfg.
func New(cfg *Config) *FS {
	fs := &FS{nodes: make(map[vfs.FileID]*node)}
	fs.nextID.Store(uint64(rootID))
	fs.writeVerf = uint64(time.Now().UnixNano())

	now := time.Now()
	root := &node{
		id:       rootID,
		parentID: rootID,
		ftype:    vfs.TypeDir,
		mode:     0755,
		children: make(map[string]vfs.FileID),
		atime:    now, mtime: now, ctime: now,
	}
	fs.nodes[rootID] = root

	dirIDs := map[string]vfs.FileID{"/": rootID}
	for _, e := range cfg.entries {
		parentPath := normalizeDir(e.parent)
		parentID, ok := dirIDs[parentPath]
		if !ok {
			parentID = rootID
		}
		id := vfs.FileID(fs.nextID.Add(1))
		n := &node{id: id, atime: now, mtime: now, ctime: now}
		if e.isDir {
			n.ftype = vfs.TypeDir
			n.mode = 0755
			n.children = make(map[string]vfs.FileID)
			dirIDs[normalizeDir(e.parent+e.name+"/")] = id
		} else {
			n.ftype = vfs.TypeReg
			n.mode = 0644
			n.content = append([]byte(nil), e.content...)
		}
		fs.nodes[id] = n
		fs.attach(parentID, e.name, id)
	}
	return fs
}

func normalizeDir(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (fs *FS) attach(parentID vfs.FileID, name string, childID vfs.FileID) {
	fs.mu.RLock()
	parent := fs.nodes[parentID]
	child := fs.nodes[childID]
	fs.mu.RUnlock()
	parent.mu.Lock()
	if _, exists := parent.children[name]; !exists {
		parent.order = append(parent.order, name)
	}
	parent.children[name] = childID
	parent.mu.Unlock()

	if child != nil {
		child.mu.Lock()
		child.parentID = parentID
		child.mu.Unlock()
	}
}

func (fs *FS) get(id vfs.FileID) (*node, error) {
	fs.mu.RLock()
	n, ok := fs.nodes[id]
	fs.mu.RUnlock()
	if !ok {
		return nil, vfs.New(vfs.ErrStaleHandle, "no such file id", "")
	}
	return n, nil
}

func toAttr(n *node) vfs.Attr {
	n.mu.RLock()
	defer n.mu.RUnlock()
	nlink := uint32(1)
	if n.ftype == vfs.TypeDir {
		nlink = uint32(2 + len(n.children))
	}
	return vfs.Attr{
		Type:   n.ftype,
		Mode:   n.mode,
		Nlink:  nlink,
		UID:    n.uid,
		GID:    n.gid,
		Size:   uint64(len(n.content)),
		Used:   uint64(len(n.content)),
		FSID:   1,
		FileID: n.id,
		Atime:  toNFSTime(n.atime),
		Mtime:  toNFSTime(n.mtime),
		Ctime:  toNFSTime(n.ctime),
	}
}

func toNFSTime(t time.Time) vfs.Time {
	return vfs.Time{Seconds: uint32(t.Unix()), Nseconds: uint32(t.Nanosecond())}
}

func (fs *FS) RootDir() vfs.FileID { return rootID }

func (fs *FS) GetAttr(ctx context.Context, id vfs.FileID) (vfs.Attr, error) {
	n, err := fs.get(id)
	if err != nil {
		return vfs.Attr{}, err
	}
	return toAttr(n), nil
}

func (fs *FS) SetAttr(ctx context.Context, id vfs.FileID, attr vfs.SetAttr, guard *vfs.Time) (pre, post vfs.Attr, err error) {
	n, err := fs.get(id)
	if err != nil {
		return vfs.Attr{}, vfs.Attr{}, err
	}
	pre = toAttr(n)
	if guard != nil {
		if pre.Ctime.Seconds != guard.Seconds || pre.Ctime.Nseconds != guard.Nseconds {
			return pre, pre, vfs.New(vfs.ErrInvalidArgument, "setattr guard mismatch", "")
		}
	}
	n.mu.Lock()
	if attr.Mode != nil {
		n.mode = *attr.Mode
	}
	if attr.UID != nil {
		n.uid = *attr.UID
	}
	if attr.GID != nil {
		n.gid = *attr.GID
	}
	if attr.Size != nil {
		resize(n, *attr.Size)
	}
	if attr.Mtime != nil {
		n.mtime = time.Unix(int64(attr.Mtime.Seconds), int64(attr.Mtime.Nseconds))
	}
	if attr.Atime != nil {
		n.atime = time.Unix(int64(attr.Atime.Seconds), int64(attr.Atime.Nseconds))
	}
	n.ctime = time.Now()
	n.mu.Unlock()
	return pre, toAttr(n), nil
}

func resize(n *node, size uint64) {
	if uint64(len(n.content)) == size {
		return
	}
	if size < uint64(len(n.content)) {
		n.content = n.content[:size]
		return
	}
	grown := make([]byte, size)
	copy(grown, n.content)
	n.content = grown
}

func (fs *FS) Lookup(ctx context.Context, dir vfs.FileID, name string) (vfs.FileID, error) {
	d, err := fs.get(dir)
	if err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.ftype != vfs.TypeDir {
		return 0, vfs.New(vfs.ErrNotDirectory, "not a directory", "")
	}
	if name == "." {
		return dir, nil
	}
	id, ok := d.children[name]
	if !ok {
		return 0, vfs.New(vfs.ErrNotFound, "no such entry", name)
	}
	return id, nil
}

func (fs *FS) Read(ctx context.Context, id vfs.FileID, offset uint64, count uint32) ([]byte, bool, error) {
	n, err := fs.get(id)
	if err != nil {
		return nil, false, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if offset >= uint64(len(n.content)) {
		return nil, true, nil
	}
	end := offset + uint64(count)
	if end > uint64(len(n.content)) {
		end = uint64(len(n.content))
	}
	data := append([]byte(nil), n.content[offset:end]...)
	eof := end == uint64(len(n.content))
	return data, eof, nil
}

func (fs *FS) Write(ctx context.Context, id vfs.FileID, offset uint64, stable vfs.StableHow, data []byte) (vfs.StableHow, uint64, error) {
	n, err := fs.get(id)
	if err != nil {
		return 0, 0, err
	}
	n.mu.Lock()
	end := offset + uint64(len(data))
	if end > uint64(len(n.content)) {
		resize(n, end)
	}
	copy(n.content[offset:end], data)
	n.mtime = time.Now()
	n.ctime = n.mtime
	n.mu.Unlock()
	return stable, fs.writeVerf, nil
}

func (fs *FS) Create(ctx context.Context, dir vfs.FileID, name string, how vfs.CreateHow, attr vfs.SetAttr, verifier uint64) (vfs.FileID, error) {
	d, err := fs.get(dir)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	existingID, exists := d.children[name]
	d.mu.Unlock()

	if exists {
		existing, err := fs.get(existingID)
		if err != nil {
			return 0, err
		}
		switch how {
		case vfs.Exclusive:
			existing.mu.RLock()
			match := existing.hasCreateVerifier && existing.createVerifier == verifier
			existing.mu.RUnlock()
			if match {
				return existingID, nil
			}
			return 0, vfs.New(vfs.ErrAlreadyExists, "create exclusive verifier mismatch", name)
		case vfs.Guarded:
			return 0, vfs.New(vfs.ErrAlreadyExists, "file exists", name)
		default: // Unchecked: truncate and reuse
			existing.mu.Lock()
			existing.content = existing.content[:0]
			existing.mtime = time.Now()
			existing.mu.Unlock()
			return existingID, nil
		}
	}

	now := time.Now()
	id := vfs.FileID(fs.nextID.Add(1))
	n := &node{id: id, ftype: vfs.TypeReg, mode: 0644, atime: now, mtime: now, ctime: now}
	if attr.Mode != nil {
		n.mode = *attr.Mode
	}
	if how == vfs.Exclusive {
		n.hasCreateVerifier = true
		n.createVerifier = verifier
	}
	fs.mu.Lock()
	fs.nodes[id] = n
	fs.mu.Unlock()
	fs.attach(dir, name, id)
	return id, nil
}

func (fs *FS) Mkdir(ctx context.Context, dir vfs.FileID, name string, attr vfs.SetAttr) (vfs.FileID, error) {
	return fs.mkNode(dir, name, vfs.TypeDir, attr, "", 0, 0)
}

func (fs *FS) Symlink(ctx context.Context, dir vfs.FileID, name, target string, attr vfs.SetAttr) (vfs.FileID, error) {
	return fs.mkNode(dir, name, vfs.TypeLnk, attr, target, 0, 0)
}

func (fs *FS) Mknod(ctx context.Context, dir vfs.FileID, name string, ftype vfs.FileType, major, minor uint32, attr vfs.SetAttr) (vfs.FileID, error) {
	return fs.mkNode(dir, name, ftype, attr, "", major, minor)
}

func (fs *FS) mkNode(dir vfs.FileID, name string, ftype vfs.FileType, attr vfs.SetAttr, target string, major, minor uint32) (vfs.FileID, error) {
	d, err := fs.get(dir)
	if err != nil {
		return 0, err
	}
	d.mu.RLock()
	_, exists := d.children[name]
	d.mu.RUnlock()
	if exists {
		return 0, vfs.New(vfs.ErrAlreadyExists, "already exists", name)
	}

	now := time.Now()
	id := vfs.FileID(fs.nextID.Add(1))
	n := &node{id: id, ftype: ftype, mode: 0755, target: target, atime: now, mtime: now, ctime: now}
	if ftype == vfs.TypeDir {
		n.children = make(map[string]vfs.FileID)
		n.mode = 0755
	} else {
		n.mode = 0644
	}
	if attr.Mode != nil {
		n.mode = *attr.Mode
	}
	_ = major
	_ = minor
	fs.mu.Lock()
	fs.nodes[id] = n
	fs.mu.Unlock()
	fs.attach(dir, name, id)
	return id, nil
}

func (fs *FS) Remove(ctx context.Context, dir vfs.FileID, name string) error {
	return fs.unlink(dir, name, false)
}

func (fs *FS) Rmdir(ctx context.Context, dir vfs.FileID, name string) error {
	return fs.unlink(dir, name, true)
}

func (fs *FS) unlink(dir vfs.FileID, name string, wantDir bool) error {
	d, err := fs.get(dir)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.children[name]
	if !ok {
		return vfs.New(vfs.ErrNotFound, "no such entry", name)
	}
	child, err := fs.get(id)
	if err != nil {
		return err
	}
	child.mu.RLock()
	isDir := child.ftype == vfs.TypeDir
	childCount := len(child.children)
	child.mu.RUnlock()

	if wantDir && !isDir {
		return vfs.New(vfs.ErrNotDirectory, "not a directory", name)
	}
	if !wantDir && isDir {
		return vfs.New(vfs.ErrIsDirectory, "is a directory", name)
	}
	if wantDir && childCount > 0 {
		return vfs.New(vfs.ErrNotEmpty, "directory not empty", name)
	}

	delete(d.children, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	fs.mu.Lock()
	delete(fs.nodes, id)
	fs.mu.Unlock()
	return nil
}

func (fs *FS) Rename(ctx context.Context, fromDir vfs.FileID, fromName string, toDir vfs.FileID, toName string) error {
	from, err := fs.get(fromDir)
	if err != nil {
		return err
	}
	to, err := fs.get(toDir)
	if err != nil {
		return err
	}
	from.mu.Lock()
	id, ok := from.children[fromName]
	if !ok {
		from.mu.Unlock()
		return vfs.New(vfs.ErrNotFound, "no such entry", fromName)
	}
	delete(from.children, fromName)
	for i, n := range from.order {
		if n == fromName {
			from.order = append(from.order[:i], from.order[i+1:]...)
			break
		}
	}
	from.mu.Unlock()

	to.mu.Lock()
	if _, exists := to.children[toName]; !exists {
		to.order = append(to.order, toName)
	}
	to.children[toName] = id
	to.mu.Unlock()
	return nil
}

func (fs *FS) Link(ctx context.Context, id vfs.FileID, dir vfs.FileID, name string) error {
	if _, err := fs.get(id); err != nil {
		return err
	}
	fs.attach(dir, name, id)
	return nil
}

func (fs *FS) Readlink(ctx context.Context, id vfs.FileID) (string, error) {
	n, err := fs.get(id)
	if err != nil {
		return "", err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.ftype != vfs.TypeLnk {
		return "", vfs.New(vfs.ErrInvalidArgument, "not a symlink", "")
	}
	return n.target, nil
}

type dirIterator struct {
	fs      *FS
	entries []vfs.DirEntryPlus
	pos     int
}

func (it *dirIterator) Next(ctx context.Context) vfs.NextResult[vfs.DirEntryPlus] {
	if it.pos >= len(it.entries) {
		return vfs.EofResult[vfs.DirEntryPlus]()
	}
	e := it.entries[it.pos]
	it.pos++
	return vfs.Ok(e)
}

func (fs *FS) ReadDirPlus(ctx context.Context, dir vfs.FileID, startCookie uint64) (vfs.ReadDirPlusIterator, error) {
	d, err := fs.get(dir)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	parentID := d.parentID
	names := append([]string{".", ".."}, d.order...)
	childIDs := make(map[string]vfs.FileID, len(d.children))
	for k, v := range d.children {
		childIDs[k] = v
	}
	d.mu.RUnlock()

	entries := make([]vfs.DirEntryPlus, 0, len(names))
	for i, name := range names {
		var childID vfs.FileID
		switch name {
		case ".":
			childID = dir
		case "..":
			childID = parentID
		default:
			childID = childIDs[name]
		}
		child, err := fs.get(childID)
		if err != nil {
			continue
		}
		cookie := uint64(i + 1)
		if cookie <= startCookie {
			continue
		}
		entries = append(entries, vfs.DirEntryPlus{
			DirEntry: vfs.DirEntry{FileID: childID, Name: name, Cookie: cookie},
			Attr:     toAttr(child),
			ChildID:  childID,
		})
	}
	return &dirIterator{fs: fs, entries: entries}, nil
}

func (fs *FS) FSStat(ctx context.Context, id vfs.FileID) (vfs.FSStat, error) {
	return vfs.FSStat{
		TotalBytes:  1 << 30,
		FreeBytes:   1 << 29,
		AvailBytes:  1 << 29,
		TotalFiles:  1 << 20,
		FreeFiles:   1 << 19,
		AvailFiles:  1 << 19,
	}, nil
}

func (fs *FS) FSInfo(ctx context.Context, id vfs.FileID) (vfs.FSInfo, error) {
	return vfs.FSInfo{
		RtMax: 1 << 20, RtPref: 1 << 20, RtMult: 4096,
		WtMax: 1 << 20, WtPref: 1 << 20, WtMult: 4096,
		DtPref:      32 * 1024,
		MaxFileSize: 1 << 30,
		TimeDelta:   vfs.Time{Seconds: 1},
		Properties:  0x1 | 0x2, // FSF3_LINK | FSF3_SYMLINK
	}, nil
}

func (fs *FS) Commit(ctx context.Context, id vfs.FileID, offset uint64, count uint32) (uint64, error) {
	if _, err := fs.get(id); err != nil {
		return 0, err
	}
	return fs.writeVerf, nil
}
