package main

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	tea "github.com/charmbracelet/bubbletea"
)

// wsClient drives one read-only WebSocket connection to the Hub. A
// background goroutine decodes frames and feeds them onto events; the
// bubbletea program drains that channel via waitForEventCmd, one message at
// a time, the same "block on a channel inside a tea.Cmd" pattern the
// dispatcher socket client in the pack uses for its status feed.
type wsClient struct {
	conn   *websocket.Conn
	events chan wireEnvelope
	closed chan error
}

// connectWS dials the Hub's WebSocket endpoint for project, with no
// from_seq so the server replays its default backlog before live events.
func connectWS(addr, project string) (*wsClient, error) {
	wsURL := toWebSocketURL(addr) + "/ws/" + url.PathEscape(project)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}

	c := &wsClient{
		conn:   conn,
		events: make(chan wireEnvelope, 64),
		closed: make(chan error, 1),
	}
	go c.readLoop()
	return c, nil
}

func toWebSocketURL(addr string) string {
	switch {
	case strings.HasPrefix(addr, "https://"):
		return "wss://" + strings.TrimPrefix(addr, "https://")
	case strings.HasPrefix(addr, "http://"):
		return "ws://" + strings.TrimPrefix(addr, "http://")
	default:
		return "ws://" + addr
	}
}

func (c *wsClient) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.closed <- err
			return
		}
		if string(data) == "ping" || string(data) == "pong" {
			continue
		}
		var env wireEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		c.events <- env
	}
}

func (c *wsClient) close() {
	_ = c.conn.Close()
}

// wsEventMsg carries one decoded frame from the Hub to Update.
type wsEventMsg wireEnvelope

// wsClosedMsg reports the connection ending, with the error that ended it.
type wsClosedMsg struct{ err error }

// wsConnectedMsg reports a successful dial, carrying the client to keep
// listening on.
type wsConnectedMsg struct {
	client *wsClient
	err    error
}

// connectWSCmd dials the Hub in the background and reports the result.
func connectWSCmd(addr, project string) tea.Cmd {
	return func() tea.Msg {
		client, err := connectWS(addr, project)
		return wsConnectedMsg{client: client, err: err}
	}
}

// waitForEventCmd blocks until the next frame or the connection closing,
// and must be re-issued by Update after each delivered message to keep
// draining the stream.
func waitForEventCmd(client *wsClient) tea.Cmd {
	return func() tea.Msg {
		select {
		case env, ok := <-client.events:
			if !ok {
				return wsClosedMsg{err: <-client.closed}
			}
			return wsEventMsg(env)
		case err := <-client.closed:
			return wsClosedMsg{err: err}
		}
	}
}
