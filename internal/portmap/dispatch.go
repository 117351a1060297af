package portmap

// ProcedureFunc is the signature every PORTMAP procedure implementation
// shares.
type ProcedureFunc func(h *Handler, args []byte) ([]byte, error)

// DispatchTable maps a PORTMAP procedure number to its implementation.
// Only NULL, GETPORT and DUMP are registered: per spec.md, SET, UNSET
// and CALLIT are not supported, so those procedure numbers fall through
// Dispatch's unknown-proc path and answer PROC_UNAVAIL, the same as any
// other unrecognized procedure.
var DispatchTable = map[uint32]ProcedureFunc{
	ProcNull:    (*Handler).Null,
	ProcGetport: (*Handler).Getport,
	ProcDump:    (*Handler).Dump,
}

// Dispatch invokes the handler registered for proc, reporting
// PROC_UNAVAIL via a false second return when proc is unknown or
// explicitly unsupported.
func Dispatch(h *Handler, proc uint32, args []byte) ([]byte, bool, error) {
	fn, ok := DispatchTable[proc]
	if !ok {
		return nil, false, nil
	}
	data, err := fn(h, args)
	return data, true, err
}
