package ws

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridline/table-sync-service/internal/domain/event"
	wsmarshaller "github.com/gridline/table-sync-service/internal/handler/marshaller/ws"
	"github.com/gridline/table-sync-service/internal/service"
)

// WSHandler upgrades GET /ws/{table_id} and runs the per-connection state
// machine: attach, identify, subscribe, snapshot, then two pumps until
// either direction ends.
type WSHandler struct {
	logger   *slog.Logger
	collab   service.Collab
	upgrader websocket.Upgrader
	tracer   trace.Tracer
}

func NewWSHandler(logger *slog.Logger, collab service.Collab) *WSHandler {
	return &WSHandler{
		logger: logger,
		collab: collab,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
		tracer: otel.Tracer("handler/ws"),
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tableID, err := strconv.ParseInt(chi.URLParam(r, "table_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid table id", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx, span := h.tracer.Start(r.Context(), "ws.attach")
	sess, err := h.collab.Open(ctx, tableID)
	span.End()
	if err != nil {
		// Unknown table (or storage down): close quietly, no frames.
		return
	}

	clientID, sub := h.collab.Attach(sess)

	// The snapshot reads every cell under its own lock; owner_id is present
	// exactly where a lock is currently held.
	initFrame, err := wsmarshaller.MarshalEvent(event.Init{ClientID: clientID, Table: sess.Snapshot()})
	if err != nil {
		h.collab.Detach(sess, sub)
		h.logger.Error("init snapshot marshal failed", "table_id", tableID, "error", err)
		return
	}
	if err := ws.WriteMessage(websocket.TextMessage, initFrame); err != nil {
		h.collab.Detach(sess, sub)
		return
	}

	h.logger.Info("ws opened", "table_id", tableID, "client_id", clientID)

	// Outbound pump. Owns every write after Init; exits when the mailbox
	// closes (detach or lag-drop) or the socket dies, and closes the socket
	// so the inbound pump unblocks either way.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer ws.Close()
		for ev := range sub.Recv() {
			data, err := wsmarshaller.MarshalEvent(ev)
			if err != nil {
				h.logger.Error("event marshal failed", "table_id", tableID, "error", err)
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	// Inbound pump. Undecodable frames and server-authored types are
	// silently ignored; there is no error channel back to the client.
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		op, err := wsmarshaller.UnmarshalClientFrame(data)
		if err != nil {
			continue
		}
		h.collab.Apply(r.Context(), sess, clientID, op)
	}

	// Locks held by this client stay in the grid; the sweeper reclaims
	// them after the usual grace window.
	h.collab.Detach(sess, sub)
	<-writerDone

	h.logger.Info("ws closed", "table_id", tableID, "client_id", clientID)
}
