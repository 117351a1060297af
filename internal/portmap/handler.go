package portmap

import (
	"bytes"

	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
)

// Handler implements the PORTMAP procedures against a Registry.
type Handler struct {
	Registry *Registry
}

// NewHandler builds a Handler bound to registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{Registry: registry}
}

// Null implements PMAPPROC_NULL.
func (h *Handler) Null(args []byte) ([]byte, error) {
	return nil, nil
}

func decodeMapping(data []byte) (Mapping, error) {
	r := bytes.NewReader(data)
	prog, err := gxdr.ReadUint32(r, "mapping.prog")
	if err != nil {
		return Mapping{}, err
	}
	vers, err := gxdr.ReadUint32(r, "mapping.vers")
	if err != nil {
		return Mapping{}, err
	}
	prot, err := gxdr.ReadUint32(r, "mapping.prot")
	if err != nil {
		return Mapping{}, err
	}
	port, err := gxdr.ReadUint32(r, "mapping.port")
	if err != nil {
		return Mapping{}, err
	}
	return Mapping{Prog: prog, Vers: vers, Prot: prot, Port: port}, nil
}

// Getport implements PMAPPROC_GETPORT: answers the port registered for
// the requested (prog, vers, prot), or 0 if unregistered.
func (h *Handler) Getport(args []byte) ([]byte, error) {
	m, err := decodeMapping(args)
	if err != nil {
		return encodeUint32(0), nil
	}
	port := h.Registry.GetPort(m.Prog, m.Vers, m.Prot)
	return encodeUint32(port), nil
}

// Dump implements PMAPPROC_DUMP: the full mapping list, encoded as
// RFC 1057's pmaplist linked list.
func (h *Handler) Dump(args []byte) ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range h.Registry.Dump() {
		_ = gxdr.WriteBool(&buf, true)
		_ = gxdr.WriteUint32(&buf, m.Prog)
		_ = gxdr.WriteUint32(&buf, m.Vers)
		_ = gxdr.WriteUint32(&buf, m.Prot)
		_ = gxdr.WriteUint32(&buf, m.Port)
	}
	_ = gxdr.WriteBool(&buf, false)
	return buf.Bytes(), nil
}

func encodeUint32(v uint32) []byte {
	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, v)
	return buf.Bytes()
}
