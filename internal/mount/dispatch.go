package mount

// ProcedureFunc is the signature every MOUNT procedure implementation
// shares.
type ProcedureFunc func(h *Handler, ctx *HandlerContext, args []byte) ([]byte, error)

// DispatchTable maps a MOUNT procedure number to its implementation.
var DispatchTable = map[uint32]ProcedureFunc{
	ProcNull:    (*Handler).Null,
	ProcMnt:     (*Handler).Mnt,
	ProcDump:    (*Handler).Dump,
	ProcUmnt:    (*Handler).Umnt,
	ProcUmntAll: (*Handler).UmntAll,
	ProcExport:  (*Handler).Export,
}

// Dispatch invokes the handler registered for proc, reporting
// PROC_UNAVAIL via a false second return when proc is unknown.
func Dispatch(h *Handler, ctx *HandlerContext, proc uint32, args []byte) ([]byte, bool, error) {
	fn, ok := DispatchTable[proc]
	if !ok {
		return nil, false, nil
	}
	data, err := fn(h, ctx, args)
	return data, true, err
}
