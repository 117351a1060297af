package nfs3

// ProcedureFunc is the signature every NFSv3 procedure implementation
// shares: decode args, drive the VFS, encode a reply body.
type ProcedureFunc func(h *Handler, ctx *HandlerContext, args []byte) (*HandlerResult, error)

// DispatchTable maps a procedure number to its implementation, mirroring
// the RPC layer's own program/version routing one level down.
var DispatchTable = map[uint32]ProcedureFunc{
	ProcNull:        (*Handler).Null,
	ProcGetAttr:     (*Handler).Getattr,
	ProcSetAttr:     (*Handler).Setattr,
	ProcLookup:      (*Handler).Lookup,
	ProcAccess:      (*Handler).Access,
	ProcReadlink:    (*Handler).Readlink,
	ProcRead:        (*Handler).Read,
	ProcWrite:       (*Handler).Write,
	ProcCreate:      (*Handler).Create,
	ProcMkdir:       (*Handler).Mkdir,
	ProcSymlink:     (*Handler).Symlink,
	ProcMknod:       (*Handler).Mknod,
	ProcRemove:      (*Handler).Remove,
	ProcRmdir:       (*Handler).Rmdir,
	ProcRename:      (*Handler).Rename,
	ProcLink:        (*Handler).Link,
	ProcReaddir:     (*Handler).Readdir,
	ProcReaddirplus: (*Handler).Readdirplus,
	ProcFsstat:      (*Handler).Fsstat,
	ProcFsinfo:      (*Handler).Fsinfo,
	ProcPathconf:    (*Handler).Pathconf,
	ProcCommit:      (*Handler).Commit,
}

// Dispatch invokes the handler registered for proc, or reports
// PROC_UNAVAIL via a nil, false return so the RPC layer can build the
// matching reply.
func Dispatch(h *Handler, ctx *HandlerContext, proc uint32, args []byte) (*HandlerResult, bool, error) {
	fn, ok := DispatchTable[proc]
	if !ok {
		return nil, false, nil
	}
	res, err := fn(h, ctx, args)
	return res, true, err
}

// mutatingProcs is the set of procedures whose retransmission needs the
// transaction tracker's idempotence shield: a repeated WRITE, CREATE,
// REMOVE, RENAME etc. must not re-execute against the back-end (spec
// scenario: "idempotence window"). GETATTR, LOOKUP, READ and the other
// read-only procedures are naturally idempotent and never tracked.
var mutatingProcs = map[uint32]bool{
	ProcSetAttr: true,
	ProcWrite:   true,
	ProcCreate:  true,
	ProcMkdir:   true,
	ProcSymlink: true,
	ProcMknod:   true,
	ProcRemove:  true,
	ProcRmdir:   true,
	ProcRename:  true,
	ProcLink:    true,
	ProcCommit:  true,
}

// IsMutating reports whether proc's retransmission needs the
// transaction tracker's dedup cache.
func IsMutating(proc uint32) bool {
	return mutatingProcs[proc]
}
