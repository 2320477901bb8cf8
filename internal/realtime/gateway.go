package realtime

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/maisha0055/Shohojogi-sub000/internal/middleware"
	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/presence"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

// WorkerSource and CustomerSource are the slices of the repositories the
// gateway needs; the durable rows are authoritative for every presence
// decision.
type WorkerSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
}

type CustomerSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Gateway authenticates real-time connections, joins each one to its
// private per-identity channel, and keeps the presence registry in sync
// with the durable worker state across connects, availability events, and
// disconnects.
type Gateway struct {
	hub       *Hub
	registry  *presence.Registry
	workers   WorkerSource
	customers CustomerSource
	publicKey *rsa.PublicKey
	upgrader  websocket.Upgrader
}

func NewGateway(
	hub *Hub,
	registry *presence.Registry,
	workers WorkerSource,
	customers CustomerSource,
	publicKey *rsa.PublicKey,
) *Gateway {
	return &Gateway{
		hub:       hub,
		registry:  registry,
		workers:   workers,
		customers: customers,
		publicKey: publicKey,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin is enforced by the CORS layer on the upgrade request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS is the GET upgrade endpoint. The token comes from the
// Authorization header or, for browser websocket clients that cannot set
// headers, the `token` query parameter.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenStr := extractToken(r)
	if tokenStr == "" {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"Missing access token", nil,
		)
		return
	}
	ident, err := middleware.ValidateToken(tokenStr, g.publicKey)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"Invalid token", nil, err,
		)
		return
	}

	userID, err := uuid.Parse(ident.UserID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"Invalid subject", nil, err,
		)
		return
	}

	// The durable account must exist and be usable before we upgrade.
	switch ident.Role {
	case middleware.RoleWorker:
		worker, wErr := g.workers.GetByID(ctx, userID)
		if wErr != nil {
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal,
				"Could not load worker", nil, wErr,
			)
			return
		}
		if worker == nil {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrCodePermissionDenied,
				"Unknown worker account", nil,
			)
			return
		}
	case middleware.RoleCustomer:
		customer, cErr := g.customers.GetByID(ctx, userID)
		if cErr != nil {
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal,
				"Could not load customer", nil, cErr,
			)
			return
		}
		if customer == nil || !customer.IsActive {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrCodePermissionDenied,
				"Account is not active", nil,
			)
			return
		}
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		utils.Logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	conn := NewConn(uuid.NewString(), ident.UserID, ident.Role, ws)
	g.hub.Add(conn)
	go conn.writePump()

	// Workers enter their category partition only while the durable row
	// says verified + available.
	if ident.Role == middleware.RoleWorker {
		g.ReevaluateWorker(ctx, userID)
	}

	go g.readPump(conn, userID)
}

// readPump consumes client frames until the connection dies, then tears
// down presence unconditionally.
func (g *Gateway) readPump(conn *Conn, userID uuid.UUID) {
	defer func() {
		g.hub.Remove(conn.ID)
		g.registry.Unregister(conn.ID)
	}()

	conn.ws.SetReadLimit(16 << 10)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			utils.Logger.WithError(err).Debugf("Bad frame from conn %s", conn.ID)
			continue
		}

		switch env.Kind {
		case EventAvailabilityChanged:
			// The payload is only a hint that something changed; the
			// durable row decides what actually happens.
			g.handleAvailabilityChanged(conn, userID)
		default:
			utils.Logger.Debugf("Ignoring frame kind %q from conn %s", env.Kind, conn.ID)
		}
	}
}

func (g *Gateway) handleAvailabilityChanged(conn *Conn, workerID uuid.UUID) {
	if conn.Role != middleware.RoleWorker {
		return
	}
	ctx := context.Background()

	worker := g.ReevaluateWorker(ctx, workerID)
	if worker == nil {
		return
	}

	_, registered := g.registry.Lookup(conn.ID)
	ack := AvailabilityAckPayload{
		Availability: string(worker.Availability),
		Verification: string(worker.Verification),
		Registered:   registered,
	}
	frame, err := marshalFrame(EventAvailabilityAck, ack)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to marshal availability ack")
		return
	}
	if !conn.enqueue(frame) {
		utils.Logger.Warnf("Dropped availability ack for conn %s", conn.ID)
	}
}

// ReevaluateWorker re-fetches the durable worker row and applies the
// presence rule to every live connection of that worker: register while
// verified + available + categorized, unregister otherwise. Called on
// connect, on availability events, after assignments flip a worker to
// busy, and by the reconciliation sweep.
func (g *Gateway) ReevaluateWorker(ctx context.Context, workerID uuid.UUID) *models.Worker {
	worker, err := g.workers.GetByID(ctx, workerID)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Presence re-evaluation failed for worker %s", workerID)
		return nil
	}

	conns := g.hub.ConnsOfIdentity(workerID.String())
	for _, c := range conns {
		if worker != nil && worker.Dispatchable() {
			g.registry.Register(c.ID, workerID, *worker.CategoryID)
		} else {
			g.registry.Unregister(c.ID)
		}
	}
	return worker
}

// ReconcilePresence sweeps the whole registry against durable state and
// evicts entries whose worker is no longer dispatchable. Safety net for
// availability flips that happened outside a live connection event.
func (g *Gateway) ReconcilePresence(ctx context.Context) {
	seen := make(map[uuid.UUID]bool)
	for _, e := range g.registry.Snapshot() {
		if seen[e.WorkerID] {
			continue
		}
		seen[e.WorkerID] = true
		g.ReevaluateWorker(ctx, e.WorkerID)
	}
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
