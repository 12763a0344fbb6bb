package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/tilemark/mapeditor/internal/document"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 16 * 1024
	sendBuffer = 64
)

// Client streams one map document to one editor connection.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	doc      *document.MapDocument
	batches  [][]document.BuildingRecord
	size     int
	UserID   string
	MapID    string
	ClientID string
}

func NewClient(conn *websocket.Conn, doc *document.MapDocument, batchSize int, userID, clientID string) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		doc:      doc,
		batches:  Split(doc.Buildings, batchSize),
		size:     batchSize,
		UserID:   userID,
		MapID:    doc.Map.ID,
		ClientID: clientID,
	}
}

// Stream queues the map header, every building batch and the completion
// marker. It blocks while the send buffer is full.
func (c *Client) Stream(ctx context.Context) error {
	meta, err := newMessage(TypeMapMeta, c.MapID, MetaPayload{
		Map:       c.doc.Map,
		Total:     len(c.doc.Buildings),
		BatchSize: c.size,
	})
	if err != nil {
		return err
	}
	meta.ClientID = c.ClientID
	if err := c.push(ctx, meta); err != nil {
		return err
	}

	for i := range c.batches {
		if err := c.pushBatch(ctx, int64(i+1)); err != nil {
			return err
		}
	}

	done, err := newMessage(TypeLoadDone, c.MapID, DonePayload{
		Total:   len(c.doc.Buildings),
		Batches: len(c.batches),
	})
	if err != nil {
		return err
	}
	return c.push(ctx, done)
}

func (c *Client) pushBatch(ctx context.Context, seq int64) error {
	if seq < 1 || seq > int64(len(c.batches)) {
		return fmt.Errorf("no batch %d", seq)
	}
	msg, err := newMessage(TypeBuildingsBatch, c.MapID, BatchPayload{Seq: seq, Records: c.batches[seq-1]})
	if err != nil {
		return err
	}
	return c.push(ctx, msg)
}

func (c *Client) push(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	select {
	case c.send <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send queues msg without blocking; it is dropped when the buffer is full.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ClientID)
	}
}

func (c *Client) sendError(text string) {
	msg, err := newMessage(TypeError, c.MapID, ErrorPayload{Message: text})
	if err != nil {
		return
	}
	c.Send(msg)
}

// ReadPump serves resend requests until the connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", c.ClientID)
			continue
		}

		switch msg.Type {
		case TypeResend:
			var p ResendPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.sendError("invalid resend payload")
				continue
			}
			if err := c.pushBatch(ctx, p.Seq); err != nil {
				c.sendError(err.Error())
			}
		default:
			c.sendError("unknown message type: " + msg.Type)
		}
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
