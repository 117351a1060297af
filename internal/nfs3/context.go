package nfs3

import (
	"context"

	"github.com/go-nfsd/nfsd3/internal/rpc"
)

// HandlerContext carries per-request state every procedure handler
// needs beyond its typed arguments: cancellation, the caller's address
// for logging and the transaction tracker, and the decoded AUTH_UNIX
// identity (nil fields when the call used AUTH_NONE or a credential
// that failed to parse).
type HandlerContext struct {
	Context    context.Context
	ClientAddr string
	AuthFlavor uint32
	UID        *uint32
	GID        *uint32
	GIDs       []uint32
}

// ExtractHandlerContext builds a HandlerContext from a decoded RPC call
// message, parsing AUTH_UNIX credentials when present. A parse failure
// is not fatal to the call: the procedure runs with nil uid/gid, which
// ACCESS treats as granting nothing beyond world permissions.
func ExtractHandlerContext(ctx context.Context, call *rpc.CallMessage, clientAddr string) *HandlerContext {
	hc := &HandlerContext{
		Context:    ctx,
		ClientAddr: clientAddr,
		AuthFlavor: call.GetAuthFlavor(),
	}
	if hc.AuthFlavor != rpc.AuthUnix {
		return hc
	}
	body := call.GetAuthBody()
	if len(body) == 0 {
		return hc
	}
	auth, err := rpc.ParseUnixAuth(body)
	if err != nil {
		return hc
	}
	hc.UID = &auth.UID
	hc.GID = &auth.GID
	hc.GIDs = auth.GIDs
	return hc
}
