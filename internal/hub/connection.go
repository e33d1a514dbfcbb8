package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

// Keepalive thresholds (spec §4.5): the hub expects a ping at least every
// ~60s; absence for ~120s closes the connection.
const (
	pingInterval = 60 * time.Second
	pongTimeout  = 120 * time.Second
)

// connection drives one client's WebSocket socket: a read pump decoding
// inbound frames into Hub calls, and a write pump draining the
// Subscriber's outbound queue plus a keepalive ticker. Grounded on the
// teacher's telegram.Adapter.Start select-loop shape (ctx.Done() alongside
// an update channel) and gateway.Queue's bounded-channel idiom for the
// outbound side.
//
// gorilla/websocket allows at most one concurrent writer per connection, so
// every write -- event fan-out, pings, close frames, and the read pump's own
// pong/protocol-error replies -- goes through writePump's select loop. The
// read pump never calls c.ws.WriteMessage directly; it hands bytes to
// writePump over control.
type connection struct {
	ws        *websocket.Conn
	hub       *Hub
	projectID types.ProjectID
	sub       *Subscriber

	control chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func newConnection(ws *websocket.Conn, h *Hub, projectID types.ProjectID, sub *Subscriber) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		ws: ws, hub: h, projectID: projectID, sub: sub,
		control: make(chan []byte, 4),
		ctx:     ctx, cancel: cancel,
	}
}

// serve runs both pumps and blocks until the connection ends, then leaves
// the Hub's subscriber set.
func (c *connection) serve() {
	defer c.hub.Leave(c.projectID, c.sub)
	defer c.cancel()

	go c.writePump()
	c.readPump()
}

func (c *connection) readPump() {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if string(data) == "ping" {
			c.sendControl([]byte("pong"))
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendProtocolError("malformed JSON frame")
			continue
		}

		switch env.Type {
		case TypeSubmit:
			c.handleSubmit(env)
		case TypeCancel:
			c.handleCancel(env)
		case TypeSubscribeFromSeq:
			// Replay on reconnect happens at Join time (the client opens a
			// new connection with ?from_seq=N); a mid-connection
			// subscribe_from_seq is accepted but has nothing further to do
			// since the live stream is already flowing.
		default:
			c.sendProtocolError("unknown envelope type")
		}
	}
}

func (c *connection) handleSubmit(env Envelope) {
	raw, err := json.Marshal(env.Data)
	if err != nil {
		c.sendProtocolError("malformed submit payload")
		return
	}
	var data submitData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.sendProtocolError("malformed submit payload")
		return
	}

	req := types.SubmitRequest{
		Instruction:     data.Instruction,
		Agent:           data.Agent,
		Model:           data.Model,
		IsInitial:       data.IsInitial,
		DeadlineSeconds: data.DeadlineSeconds,
	}
	for _, img := range data.Images {
		req.Images = append(req.Images, agentcli.ImageRef{Path: img.Path, Name: img.Name})
	}

	if _, err := c.hub.Submit(c.ctx, c.projectID, req); err != nil {
		c.sendProtocolError("submit failed: " + err.Error())
	}
}

func (c *connection) handleCancel(env Envelope) {
	raw, err := json.Marshal(env.Data)
	if err != nil {
		c.sendProtocolError("malformed cancel payload")
		return
	}
	var data cancelData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.sendProtocolError("malformed cancel payload")
		return
	}
	if _, err := c.hub.Cancel(c.ctx, c.projectID, types.RequestID(data.RequestID)); err != nil {
		c.sendProtocolError("cancel failed: " + err.Error())
	}
}

// sendProtocolError surfaces a Hub frame-layer error to the originating
// client only (spec §7): "Errors in the Hub frame layer... are returned to
// the originating client as an Error{kind=protocol} and do not affect
// other subscribers."
func (c *connection) sendProtocolError(message string) {
	env := Envelope{
		Type: string(agentcli.EventError),
		Data: agentcli.Error{Kind: agentcli.ErrProtocol, Message: message},
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.sendControl(data)
}

// sendControl hands a pre-built frame to writePump, the sole writer of
// c.ws. Dropped (rather than blocking the read pump) if writePump has
// already exited and stopped draining control.
func (c *connection) sendControl(data []byte) {
	select {
	case c.control <- data:
	case <-c.ctx.Done():
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer func() { _ = c.ws.Close() }()

	for {
		select {
		case data := <-c.control:
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case ev, ok := <-c.sub.Outbound:
			if !ok {
				select {
				case code := <-c.sub.Closed:
					_ = c.ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(code, "slow_consumer"))
				default:
				}
				return
			}
			data, err := json.Marshal(toEnvelope(ev))
			if err != nil {
				slog.Error("failed to marshal outbound event", "error", err)
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case code := <-c.sub.Closed:
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, "slow_consumer"))
			return
		case <-ticker.C:
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
