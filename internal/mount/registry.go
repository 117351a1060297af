package mount

import "sync"

// Event describes a mount-state transition, delivered on the optional
// signal channel for callers (tests, an operator CLI) that want to
// observe MNT/UMNT/UMNTALL without polling Dump.
type Event struct {
	ClientAddr string
	Export     string
	Mounted    bool // false for UMNT/UMNTALL
}

// Entry is one active mount record, matching RFC 1813 Appendix I's
// mountbody (hostname + directory).
type Entry struct {
	ClientAddr string
	Export     string
}

// Registry tracks the single configured export and the set of clients
// that currently hold it mounted. It has no bearing on access control:
// NFS handle resolution does not consult it, matching the teacher's
// separation between mount bookkeeping (DUMP/UMNT) and the VFS.
type Registry struct {
	exportName string
	rootHandle []byte

	mu     sync.Mutex
	mounts map[string]map[string]bool // clientAddr -> export set

	signal chan<- Event
}

// NewRegistry creates a registry serving exactly one export, whose
// root file handle is already minted (by the nfs3 file-handle
// converter). signal may be nil; when non-nil it receives every
// mount/unmount transition without blocking the caller (a full channel
// drops the event).
func NewRegistry(exportName string, rootHandle []byte, signal chan<- Event) *Registry {
	return &Registry{
		exportName: exportName,
		rootHandle: rootHandle,
		mounts:     make(map[string]map[string]bool),
		signal:     signal,
	}
}

// ExportName returns the single path this server exports.
func (r *Registry) ExportName() string { return r.exportName }

// RootHandle returns the nfs_fh3 bytes MNT hands back on success.
func (r *Registry) RootHandle() []byte { return r.rootHandle }

// Mount records clientAddr as holding export mounted.
func (r *Registry) Mount(clientAddr, export string) {
	r.mu.Lock()
	set, ok := r.mounts[clientAddr]
	if !ok {
		set = make(map[string]bool)
		r.mounts[clientAddr] = set
	}
	set[export] = true
	r.mu.Unlock()
	r.notify(Event{ClientAddr: clientAddr, Export: export, Mounted: true})
}

// Unmount removes one client/export mount record. Always succeeds,
// matching RFC 1813's void UMNT reply even when no record existed.
func (r *Registry) Unmount(clientAddr, export string) {
	r.mu.Lock()
	if set, ok := r.mounts[clientAddr]; ok {
		delete(set, export)
		if len(set) == 0 {
			delete(r.mounts, clientAddr)
		}
	}
	r.mu.Unlock()
	r.notify(Event{ClientAddr: clientAddr, Export: export, Mounted: false})
}

// UnmountAll clears every mount record for clientAddr, returning how
// many were removed.
func (r *Registry) UnmountAll(clientAddr string) int {
	r.mu.Lock()
	set, ok := r.mounts[clientAddr]
	delete(r.mounts, clientAddr)
	r.mu.Unlock()
	if !ok {
		return 0
	}
	for export := range set {
		r.notify(Event{ClientAddr: clientAddr, Export: export, Mounted: false})
	}
	return len(set)
}

// List returns every active mount record, in no particular order.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []Entry
	for addr, set := range r.mounts {
		for export := range set {
			entries = append(entries, Entry{ClientAddr: addr, Export: export})
		}
	}
	return entries
}

func (r *Registry) notify(e Event) {
	if r.signal == nil {
		return
	}
	select {
	case r.signal <- e:
	default:
	}
}
