// Package server wires the NFSv3, MOUNT v3 and PORTMAP v2 dispatch
// tables behind one TCP listener: per spec.md §6, all three programs
// share a single port, routed by the RPC call header's program number.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-nfsd/nfsd3/internal/logger"
	"github.com/go-nfsd/nfsd3/internal/metrics"
	"github.com/go-nfsd/nfsd3/internal/mount"
	"github.com/go-nfsd/nfsd3/internal/nfs3"
	"github.com/go-nfsd/nfsd3/internal/portmap"
	"github.com/go-nfsd/nfsd3/internal/rpc"
	"github.com/go-nfsd/nfsd3/internal/vfs"
)

// Config configures the combined listener.
type Config struct {
	// Address is the bind address, e.g. "0.0.0.0" or "127.0.0.1".
	Address string
	// Port is the single TCP port NFS, MOUNT and PORTMAP all answer on.
	Port int

	// FS is the VFS back-end every mounted export resolves against.
	FS vfs.FileSystem
	// ExportName is the path MOUNT accepts, e.g. "/export".
	ExportName string
	// ExportID tags every file handle this server mints.
	ExportID byte

	Limits nfs3.Limits

	TrackerTTL          time.Duration
	TrackerMaxClients   int
	TrackerMaxPerClient int

	// Collector is optional; a nil Collector records nothing.
	Collector *metrics.Collector

	// MountEvents optionally receives Mount/Unmount notifications.
	MountEvents chan<- mount.Event
}

// Listener is the combined NFS/MOUNT/PORTMAP TCP server.
type Listener struct {
	cfg Config

	nfsHandler      *nfs3.Handler
	mountHandler    *mount.Handler
	mountRegistry   *mount.Registry
	portmapHandler  *portmap.Handler
	portmapRegistry *portmap.Registry
	tracker         *rpc.TransactionTracker

	tcpListener net.Listener
	shutdown    chan struct{}
}

// NewListener builds a Listener from cfg. The root file handle is
// minted once at construction, matching spec.md §6's "persisted state:
// none" — handles are derived fresh every process lifetime.
func NewListener(cfg Config) *Listener {
	fh := nfs3.NewFileHandleConverter(cfg.ExportID)
	rootHandle := fh.ToHandle(cfg.FS.RootDir())

	mountRegistry := mount.NewRegistry(cfg.ExportName, rootHandle, cfg.MountEvents)
	portmapRegistry := portmap.NewRegistry()
	portmapRegistry.Register(portmap.Mapping{Prog: nfs3.Program, Vers: nfs3.Version, Prot: portmap.IPProtoTCP, Port: uint32(cfg.Port)})
	portmapRegistry.Register(portmap.Mapping{Prog: mount.Program, Vers: mount.Version, Prot: portmap.IPProtoTCP, Port: uint32(cfg.Port)})

	return &Listener{
		cfg:             cfg,
		nfsHandler:      nfs3.NewHandler(cfg.FS, cfg.ExportID, cfg.Limits),
		mountHandler:    mount.NewHandler(mountRegistry),
		mountRegistry:   mountRegistry,
		portmapHandler:  portmap.NewHandler(portmapRegistry),
		portmapRegistry: portmapRegistry,
		tracker:         rpc.NewTransactionTracker(cfg.TrackerTTL, cfg.TrackerMaxClients, cfg.TrackerMaxPerClient),
		shutdown:        make(chan struct{}),
	}
}

// PortmapRegistry exposes the mappings this listener registered, so a
// caller can also stand up a standalone rpcbind-compatible portmapper
// (internal/portmap.Server) on the well-known port 111 answering the
// same GETPORT/DUMP queries.
func (l *Listener) PortmapRegistry() *portmap.Registry {
	return l.portmapRegistry
}

// Serve binds the listener and accepts connections until ctx is
// cancelled or Stop is called.
func (l *Listener) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", l.cfg.Address, l.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	l.tcpListener = ln
	logger.Info("nfsd3 listening", "address", addr)

	go func() {
		<-ctx.Done()
		l.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-l.shutdown:
				return nil
			default:
				logger.Debug("server: accept error", "error", err)
				return err
			}
		}
		c := newConnection(l, conn)
		go c.serve(ctx)
	}
}

// Stop closes the listener, unblocking Serve.
func (l *Listener) Stop() {
	select {
	case <-l.shutdown:
		return
	default:
		close(l.shutdown)
	}
	if l.tcpListener != nil {
		_ = l.tcpListener.Close()
	}
}

// Addr returns the bound address, or "" if Serve has not yet bound.
func (l *Listener) Addr() string {
	if l.tcpListener != nil {
		return l.tcpListener.Addr().String()
	}
	return ""
}
