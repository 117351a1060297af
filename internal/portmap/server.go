package portmap

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-nfsd/nfsd3/internal/logger"
	"github.com/go-nfsd/nfsd3/internal/rpc"
)

// maxDatagramSize bounds a single UDP packet: portmap messages are a
// handful of words, never anything close to NFS's rtmax/wtmax.
const maxDatagramSize = 1 << 16

// ServerConfig configures the portmapper's dual TCP/UDP listeners.
type ServerConfig struct {
	// Port is the port to listen on (111 per RFC 1057, though a test
	// harness may bind an ephemeral port for isolation).
	Port int

	// Registry backs GETPORT/DUMP.
	Registry *Registry
}

// Server implements an RFC 1057 portmapper that answers the same
// Registry over both TCP (RPC record marking) and UDP (one packet, one
// message, no framing).
type Server struct {
	config       ServerConfig
	handler      *Handler
	tcpListener  net.Listener
	udpConn      *net.UDPConn
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServer builds a Server bound to cfg.Registry.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		config:   cfg,
		handler:  NewHandler(cfg.Registry),
		shutdown: make(chan struct{}),
	}
}

// Serve binds both transports and blocks until ctx is cancelled or Stop
// is called.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	tcpListener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("portmap: listen tcp %s: %w", addr, err)
	}
	s.tcpListener = tcpListener

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		_ = s.tcpListener.Close()
		return fmt.Errorf("portmap: resolve udp %s: %w", addr, err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		_ = s.tcpListener.Close()
		return fmt.Errorf("portmap: listen udp %s: %w", addr, err)
	}
	s.udpConn = udpConn

	logger.Info("portmap server started", "address", addr)

	s.wg.Add(2)
	go s.serveTCP()
	go s.serveUDP()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	s.wg.Wait()
	return nil
}

// Stop closes both listeners, unblocking Serve.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.tcpListener != nil {
			_ = s.tcpListener.Close()
		}
		if s.udpConn != nil {
			_ = s.udpConn.Close()
		}
	})
}

// Addr returns the TCP listener's address, or "" if not yet bound.
func (s *Server) Addr() string {
	if s.tcpListener != nil {
		return s.tcpListener.Addr().String()
	}
	return ""
}

// UDPAddr returns the UDP socket's address, or "" if not yet bound.
func (s *Server) UDPAddr() string {
	if s.udpConn != nil {
		return s.udpConn.LocalAddr().String()
	}
	return ""
}

func (s *Server) serveTCP() {
	defer s.wg.Done()

	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				logger.Debug("portmap: tcp accept error", "error", err)
				return
			}
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleTCPConn(c)
		}(conn)
	}
}

// handleTCPConn serves exactly one RPC record per accepted connection:
// portmap clients open a short-lived connection, send one call, and
// close. A multi-call connection would hang here, but no portmap
// client (the rpcinfo style one-shot query) behaves that way.
func (s *Server) handleTCPConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	clientAddr := conn.RemoteAddr().String()
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		logger.Debug("portmap: set deadline error", "client", clientAddr, "error", err)
		return
	}

	record, err := rpc.ReadRecord(conn)
	if err != nil {
		if err != io.EOF {
			logger.Debug("portmap: read record error", "client", clientAddr, "error", err)
		}
		return
	}

	reply := s.processMessage(record, clientAddr)
	if reply == nil {
		return
	}
	if err := rpc.WriteRecord(conn, reply); err != nil {
		logger.Debug("portmap: write tcp reply error", "client", clientAddr, "error", err)
	}
}

func (s *Server) serveUDP() {
	defer s.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		if err := s.udpConn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				logger.Debug("portmap: set udp deadline error", "error", err)
				continue
			}
		}

		n, clientAddr, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-s.shutdown:
				return
			default:
				logger.Debug("portmap: udp read error", "error", err)
				continue
			}
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])
		clientStr := clientAddr.String()

		reply := s.processMessage(msg, clientStr)
		if reply == nil {
			continue
		}
		if _, err := s.udpConn.WriteToUDP(reply, clientAddr); err != nil {
			logger.Debug("portmap: write udp reply error", "client", clientStr, "error", err)
		}
	}
}

// processMessage parses one RPC call, dispatches it, and returns the
// unframed reply body shared by both transports. The caller adds
// record-marking framing for TCP and sends raw bytes for UDP.
func (s *Server) processMessage(data []byte, clientAddr string) []byte {
	call, err := rpc.ReadCall(data)
	if err != nil {
		logger.Debug("portmap: parse call error", "client", clientAddr, "error", err)
		return nil
	}

	if call.Program != Program {
		logger.Debug("portmap: wrong program", "program", call.Program, "client", clientAddr)
		return makeProgMismatchBody(call.XID, Program, Program)
	}
	if call.Version != Version {
		logger.Debug("portmap: version mismatch", "version", call.Version, "client", clientAddr)
		return makeProgMismatchBody(call.XID, Version, Version)
	}

	reply, ok, err := Dispatch(s.handler, call.Procedure, call.Args)
	if !ok {
		logger.Debug("portmap: procedure unavailable", "procedure", call.Procedure, "client", clientAddr)
		return makeErrorBody(call.XID, rpc.ProcUnavail)
	}
	if err != nil {
		logger.Debug("portmap: handler error", "procedure", call.Procedure, "client", clientAddr, "error", err)
		return makeErrorBody(call.XID, rpc.SystemErr)
	}

	return makeSuccessBody(call.XID, reply)
}

// makeSuccessBody builds an unframed RPC success reply: the common
// accepted-reply header (xid, REPLY, MSG_ACCEPTED, null verifier,
// SUCCESS) followed by the already-encoded procedure result.
func makeSuccessBody(xid uint32, data []byte) []byte {
	buf := make([]byte, 24+len(data))
	binary.BigEndian.PutUint32(buf[0:4], xid)
	binary.BigEndian.PutUint32(buf[4:8], rpc.Reply)
	binary.BigEndian.PutUint32(buf[8:12], rpc.MsgAccepted)
	binary.BigEndian.PutUint32(buf[12:16], rpc.AuthNull)
	binary.BigEndian.PutUint32(buf[16:20], 0)
	binary.BigEndian.PutUint32(buf[20:24], rpc.Success)
	copy(buf[24:], data)
	return buf
}

func makeErrorBody(xid, acceptStat uint32) []byte {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint32(buf[0:4], xid)
	binary.BigEndian.PutUint32(buf[4:8], rpc.Reply)
	binary.BigEndian.PutUint32(buf[8:12], rpc.MsgAccepted)
	binary.BigEndian.PutUint32(buf[12:16], rpc.AuthNull)
	binary.BigEndian.PutUint32(buf[16:20], 0)
	binary.BigEndian.PutUint32(buf[20:24], acceptStat)
	return buf
}

func makeProgMismatchBody(xid, low, high uint32) []byte {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint32(buf[0:4], xid)
	binary.BigEndian.PutUint32(buf[4:8], rpc.Reply)
	binary.BigEndian.PutUint32(buf[8:12], rpc.MsgAccepted)
	binary.BigEndian.PutUint32(buf[12:16], rpc.AuthNull)
	binary.BigEndian.PutUint32(buf[16:20], 0)
	binary.BigEndian.PutUint32(buf[20:24], rpc.ProgMismatch)
	binary.BigEndian.PutUint32(buf[24:28], low)
	binary.BigEndian.PutUint32(buf[28:32], high)
	return buf
}
