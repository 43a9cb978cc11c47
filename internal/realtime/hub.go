package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/project"
)

// Stores groups the persistence dependencies of the hub.
type Stores struct {
	Projects  ProjectStore
	Messages  MessageStore
	Documents DocumentStore
}

// Options tunes the hub.
type Options struct {
	// StoreTimeout bounds every persistence call made on behalf of an event.
	StoreTimeout time.Duration
	// RequireDocumentMembership restricts join-document to project members.
	RequireDocumentMembership bool
}

type inboundEvent struct {
	id    ConnID
	event Inbound
}

type command struct {
	fn   func()
	done chan struct{}
}

// Hub owns the registry and runs every state mutation on a single loop:
// connection registration and removal, inbound events in per-connection FIFO
// order, and membership commands from the REST layer.
type Hub struct {
	registry *Registry
	router   *EventRouter
	sync     *Synchronizer
	notifier *Notifier
	calls    *CallRelay
	logger   *slog.Logger

	storeTimeout time.Duration

	register   chan *Client
	unregister chan ConnID
	inbound    chan inboundEvent
	commands   chan command

	// evictions is only touched by the loop goroutine.
	evictions []ConnID

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var _ project.LiveUpdates = (*Hub)(nil)

// NewHub wires the registry, synchronizer, router and call relay. Call Run in
// its own goroutine before registering connections.
func NewHub(stores Stores, opts Options, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "hub")
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry:     NewRegistry(),
		logger:       logger,
		storeTimeout: opts.StoreTimeout,
		register:     make(chan *Client),
		unregister:   make(chan ConnID),
		inbound:      make(chan inboundEvent),
		commands:     make(chan command),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	out := &fanout{registry: h.registry, evict: h.evict, logger: logger}
	h.notifier = &Notifier{registry: h.registry, out: out, logger: logger}
	h.sync = &Synchronizer{
		registry:  h.registry,
		projects:  stores.Projects,
		documents: stores.Documents,
		out:       out,
		notifier:  h.notifier,
		logger:    logger,
	}
	h.calls = &CallRelay{registry: h.registry, out: out, notifier: h.notifier, logger: logger}
	h.router = &EventRouter{
		registry:                  h.registry,
		sync:                      h.sync,
		calls:                     h.calls,
		messages:                  stores.Messages,
		documents:                 stores.Documents,
		out:                       out,
		logger:                    logger,
		now:                       time.Now,
		requireDocumentMembership: opts.RequireDocumentMembership,
	}
	return h
}

// Registry exposes the connection registry for read-only inspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Stats reports registry sizes.
func (h *Hub) Stats() Stats {
	return h.registry.Stats()
}

// Participants lists the users currently present in a call room.
func (h *Hub) Participants(roomID string) []string {
	return h.calls.Participants(roomID)
}

// Run processes hub events until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownConnections()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case id := <-h.unregister:
			h.disconnect(id, "closed")

		case in := <-h.inbound:
			h.handleInbound(in)

		case cmd := <-h.commands:
			cmd.fn()
			close(cmd.done)
		}

		h.drainEvictions()
	}
}

// Register hands a WebSocket client to the hub, which starts its pumps. It
// reports false once the hub is shutting down; the caller then owns the
// connection.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Attach registers a connection whose I/O is driven by the caller.
func (h *Hub) Attach(ctx context.Context, conn Conn) (ConnID, error) {
	var id ConnID
	err := h.exec(ctx, func() {
		id = h.registry.Register(conn)
	})
	return id, err
}

// Dispatch queues an inbound event for the connection. Events from one
// connection are processed in the order they are dispatched.
func (h *Hub) Dispatch(id ConnID, event Inbound) {
	select {
	case h.inbound <- inboundEvent{id: id, event: event}:
	case <-h.ctx.Done():
	}
}

// Unregister removes the connection and every subscription it holds.
func (h *Hub) Unregister(id ConnID) {
	select {
	case h.unregister <- id:
	case <-h.ctx.Done():
	}
}

// Flush returns once every event queued before the call has been processed.
func (h *Hub) Flush(ctx context.Context) error {
	return h.exec(ctx, func() {})
}

// MembershipChanged implements project.LiveUpdates.
func (h *Hub) MembershipChanged(ctx context.Context, userID, projectID string, change project.MembershipChange) error {
	return h.exec(ctx, func() {
		storeCtx, cancel := h.storeContext()
		defer cancel()
		h.sync.MembershipChanged(storeCtx, userID, projectID, change)
	})
}

// ProjectDeleted implements project.LiveUpdates.
func (h *Hub) ProjectDeleted(ctx context.Context, projectID string) error {
	return h.exec(ctx, func() {
		h.sync.ProjectDeleted(projectID)
	})
}

// NotifyJoinRequest implements project.LiveUpdates.
func (h *Hub) NotifyJoinRequest(ctx context.Context, creatorID string, notice project.JoinRequestNotice) error {
	return h.exec(ctx, func() {
		h.notifier.Notify(creatorID, EventJoinRequest, notice)
	})
}

// NotifyApproved implements project.LiveUpdates.
func (h *Hub) NotifyApproved(ctx context.Context, userID string, notice project.ApprovalNotice) error {
	return h.exec(ctx, func() {
		h.notifier.Notify(userID, EventRequestApproved, notice)
	})
}

// exec runs fn on the loop goroutine and waits for it to finish.
func (h *Hub) exec(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case h.commands <- cmd:
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.ctx, h.storeTimeout)
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.logger.Warn("received nil client registration; skipping")
		return
	}

	client.id = h.registry.Register(client)
	h.logger.Info("client registered",
		"conn_id", client.id,
		"remote_addr", client.addr,
		"user_id", client.userID,
		"connections", h.registry.Stats().Connections)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleInbound(in inboundEvent) {
	if _, ok := h.registry.Conn(in.id); !ok {
		return
	}
	ctx, cancel := h.storeContext()
	defer cancel()
	_ = h.router.Route(ctx, in.id, in.event)
}

// evict schedules a connection whose buffer overflowed for removal once the
// current delivery pass finishes.
func (h *Hub) evict(id ConnID) {
	h.evictions = append(h.evictions, id)
}

func (h *Hub) drainEvictions() {
	for len(h.evictions) > 0 {
		id := h.evictions[0]
		h.evictions = h.evictions[1:]
		h.disconnect(id, "slow consumer")
	}
}

func (h *Hub) disconnect(id ConnID, reason string) {
	dep, ok := h.registry.Deregister(id)
	if !ok {
		return
	}
	dep.Conn.Close()
	h.calls.Departed(dep.UserID, dep.Rooms)

	h.logger.Info("client unregistered",
		"conn_id", id,
		"user_id", dep.UserID,
		"reason", reason,
		"connections", h.registry.Stats().Connections)
}

func (h *Hub) shutdownConnections() {
	h.logger.Info("shutting down all client connections")

	closed := 0
	for _, id := range h.registry.allConnections() {
		if dep, ok := h.registry.Deregister(id); ok {
			dep.Conn.Close()
			closed++
		}
	}

	h.logger.Info("closed client connections", "count", closed)
}

// Shutdown stops the loop, closes every connection and waits for the client
// pumps to exit, or until timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")
	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
