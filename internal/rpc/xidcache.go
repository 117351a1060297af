package rpc

import (
	"container/list"
	"sync"
	"time"
)

// TransactionTracker implements the "duplicate request cache" / dedup
// shield used by non-idempotent NFSv3 operations (WRITE, CREATE,
// REMOVE, RENAME, ...): a client that times out and retransmits a call
// it already completed gets the cached reply instead of re-executing
// the operation. Entries are keyed by (client address, xid), expire
// after a TTL, and are bounded per-client and globally so a client
// cannot grow the cache without bound.
type TransactionTracker struct {
	ttl          time.Duration
	maxClients   int
	maxPerClient int

	mu      sync.Mutex
	clients map[string]*clientEntries
	lru     *list.List // of *clientEntries, most-recently-used at front
}

type clientEntries struct {
	addr    string
	entries map[uint32]*trackedReply
	order   *list.List // of *trackedReply, oldest at front
	lruElem *list.Element
}

type trackedReply struct {
	xid     uint32
	reply   []byte
	expires time.Time
	elem    *list.Element
}

// NewTransactionTracker creates a tracker with the given per-entry TTL
// and the given per-client and global client caps. Defaults used by the
// server are TTL=60s, maxClients=256, maxPerClient=1024.
func NewTransactionTracker(ttl time.Duration, maxClients, maxPerClient int) *TransactionTracker {
	return &TransactionTracker{
		ttl:          ttl,
		maxClients:   maxClients,
		maxPerClient: maxPerClient,
		clients:      make(map[string]*clientEntries),
		lru:          list.New(),
	}
}

// Lookup returns the cached reply for (clientAddr, xid) if present and
// not expired.
func (t *TransactionTracker) Lookup(clientAddr string, xid uint32) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ce, ok := t.clients[clientAddr]
	if !ok {
		return nil, false
	}
	tr, ok := ce.entries[xid]
	if !ok {
		return nil, false
	}
	if time.Now().After(tr.expires) {
		t.removeEntryLocked(ce, tr)
		return nil, false
	}
	t.lru.MoveToFront(ce.lruElem)
	return tr.reply, true
}

// Store records reply as the result of (clientAddr, xid), evicting the
// oldest entry for that client if it is at capacity, and evicting the
// least-recently-used client entirely if the global client cap would
// be exceeded by admitting a brand-new client.
func (t *TransactionTracker) Store(clientAddr string, xid uint32, reply []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ce, ok := t.clients[clientAddr]
	if !ok {
		if len(t.clients) >= t.maxClients {
			t.evictLRUClientLocked()
		}
		ce = &clientEntries{
			addr:    clientAddr,
			entries: make(map[uint32]*trackedReply),
			order:   list.New(),
		}
		ce.lruElem = t.lru.PushFront(ce)
		t.clients[clientAddr] = ce
	} else {
		t.lru.MoveToFront(ce.lruElem)
	}

	if existing, ok := ce.entries[xid]; ok {
		t.removeEntryLocked(ce, existing)
	}
	for len(ce.entries) >= t.maxPerClient {
		oldest := ce.order.Front()
		if oldest == nil {
			break
		}
		t.removeEntryLocked(ce, oldest.Value.(*trackedReply))
	}
	if _, ok := t.clients[clientAddr]; !ok {
		// Removing the client's last entry above dropped it from the
		// tracker; re-admit it so the new entry stays reachable.
		ce.lruElem = t.lru.PushFront(ce)
		t.clients[clientAddr] = ce
	}

	tr := &trackedReply{xid: xid, reply: reply, expires: time.Now().Add(t.ttl)}
	tr.elem = ce.order.PushBack(tr)
	ce.entries[xid] = tr
}

func (t *TransactionTracker) removeEntryLocked(ce *clientEntries, tr *trackedReply) {
	delete(ce.entries, tr.xid)
	ce.order.Remove(tr.elem)
	if len(ce.entries) == 0 {
		t.lru.Remove(ce.lruElem)
		delete(t.clients, ce.addr)
	}
}

func (t *TransactionTracker) evictLRUClientLocked() {
	back := t.lru.Back()
	if back == nil {
		return
	}
	ce := back.Value.(*clientEntries)
	t.lru.Remove(back)
	delete(t.clients, ce.addr)
}
