/*
Package chat contains the real-time coordination core.

This file defines Client, the WebSocket-backed Sink. It runs the connection's
read and write loops, decodes inbound frames into Hub operations, and answers
every message:send with exactly one ack.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 16384

	// capacity of the per-connection outbound queue.
	sendBufferSize = 256
)

// Client is an active WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool

	// connID is set once the Hub registered the connection.
	connID string

	logger zerolog.Logger
}

// NewClient wraps an upgraded connection. Start WritePump before Hub.Connect
// so the connect burst drains, then call Attach with the new session.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   wsConn,
		send:   make(chan []byte, sendBufferSize),
		logger: logx.Component("ws_client"),
	}
}

// Attach binds the client to its registered session.
func (c *Client) Attach(sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connID = sess.ID
	c.logger = sess.logger.With().Str("component", "ws_client").Logger()
}

// Deliver queues frame for the write loop. A full queue marks the client as
// a slow consumer: the queue is closed and the connection torn down. Before
// Attach, a full queue waits up to writeWait for the write loop, since the
// session:ready and presence burst of Hub.Connect may exceed the queue.
func (c *Client) Deliver(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
	}

	if c.connID == "" {
		timer := time.NewTimer(writeWait)
		defer timer.Stop()

		select {
		case c.send <- frame:
			return true
		case <-timer.C:
		}
	}

	c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping connection")
	c.closed = true
	close(c.send)
	return false
}

// log returns the current logger; Attach may replace it while WritePump runs.
func (c *Client) log() *zerolog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.logger
	return &logger
}

// Close closes the outbound queue, which makes the write loop send a close
// frame and release the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails, then disconnects the
// session from the Hub.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		c.hub.Heartbeat(c.connID)
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c.connID)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame decodes one frame and dispatches it to the Hub.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var frame Frame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(frameBytes)).Msg("Client sent invalid JSON")
		c.sendError("", errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch frame.Type {
	case EventMessageSend:
		c.handleSend(frame)

	case EventChannelJoin:
		var p ChannelPayload
		if !c.decodePayload(frame, &p) {
			return
		}
		if err := c.hub.JoinChannel(context.Background(), c.connID, p.ChannelID); err != nil {
			c.sendError(frame.RequestID, err)
		}

	case EventChannelLeave:
		var p ChannelPayload
		if !c.decodePayload(frame, &p) {
			return
		}
		if err := c.hub.LeaveChannel(c.connID, p.ChannelID); err != nil {
			c.sendError(frame.RequestID, err)
		}

	case EventTypingStart, EventTypingStop:
		var p ChannelPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			c.logger.Debug().Err(err).Msg("Ignoring malformed typing payload")
			return
		}
		if frame.Type == EventTypingStart {
			c.hub.StartTyping(c.connID, p.ChannelID)
		} else {
			c.hub.StopTyping(c.connID, p.ChannelID)
		}

	case EventHeartbeat:
		c.hub.Heartbeat(c.connID)

	default:
		c.logger.Warn().Str("event", string(frame.Type)).Msg("Client sent unsupported event type")
		c.sendError(frame.RequestID, errs.NewError(errs.ErrUnsupportedEvent))
	}
}

// handleSend runs message:send and acknowledges it exactly once.
func (c *Client) handleSend(frame Frame) {
	var p SendPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		c.sendAck(frame.RequestID, Message{}, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}
	if p.ChannelID == "" {
		c.sendAck(frame.RequestID, Message{}, errs.NewError(errs.ErrInvalidParams))
		return
	}

	msg, err := c.hub.SendMessage(context.Background(), c.connID, p.ChannelID, p.Content)
	c.sendAck(frame.RequestID, msg, err)
}

func (c *Client) decodePayload(frame Frame, dst *ChannelPayload) bool {
	if err := json.Unmarshal(frame.Payload, dst); err != nil {
		c.sendError(frame.RequestID, errs.NewError(errs.ErrInvalidJSONFormat))
		return false
	}
	return true
}

func (c *Client) sendAck(requestID string, msg Message, err error) {
	ack := AckPayload{Success: err == nil}
	if err == nil {
		ack.MessageID = msg.Cursor()
	} else {
		customErr := errs.FromError(err)
		ack.Code = customErr.Code
		ack.Message = customErr.Message
	}

	c.queue(EventAck, requestID, ack)
}

func (c *Client) sendError(requestID string, err error) {
	customErr := errs.FromError(err)
	c.queue(EventError, requestID, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
}

// queue encodes and delivers a reply. Replies to a closed connection are dropped.
func (c *Client) queue(eventType EventType, requestID string, payload any) {
	frameBytes, err := EncodeFrame(eventType, requestID, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(eventType)).Msg("Failed to encode reply")
		return
	}
	if !c.Deliver(frameBytes) {
		c.logger.Debug().Str("event", string(eventType)).Msg("Reply dropped; connection closed")
	}
}

// WritePump writes queued frames to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.log().Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frameBytes, ok := <-c.send:
			if !c.writeQueuedFrame(frameBytes, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame returns false when the write loop should terminate.
func (c *Client) writeQueuedFrame(frameBytes []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log().Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.log().Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frameBytes); err != nil {
		c.log().Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log().Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log().Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
