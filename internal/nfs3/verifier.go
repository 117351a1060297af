package nfs3

import "github.com/go-nfsd/nfsd3/internal/vfs"

// noneCookieVerf is reserved for "fresh scan": a client presenting a
// zero verifier with cookie 0 is always accepted as starting a new
// enumeration.
const noneCookieVerf = uint64(0)

// sentinelCookieVerf stands in for a directory's verifier when the
// back-end has no post-op attributes to derive one from. It is
// distinguished from noneCookieVerf so "no attributes available" is
// never confused with "client asked to start over".
const sentinelCookieVerf = uint64(0xFFCCFFCCFFCCFFCC)

// cookieVerfFromAttr derives a directory's cookie verifier from its
// mtime, matching every other cookieverf-stamping NFSv3 server: as
// long as the directory is not modified between READDIR calls, the
// verifier stays stable and a client's resumption cookie remains
// valid.
func cookieVerfFromAttr(attr vfs.Attr) uint64 {
	return uint64(attr.Mtime.Seconds)<<32 | uint64(attr.Mtime.Nseconds)
}
