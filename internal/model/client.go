// Package model talks to the decision server and turns its predictions into
// gamepad actions.
package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrServer is returned when the server answers with an error status
	ErrServer = errors.New("model server error")
	// ErrBadResponse is returned for replies missing the expected payload
	ErrBadResponse = errors.New("malformed model response")
)

const (
	defaultTimeout = 30 * time.Second
	readLimit      = 16 << 20
)

// Client is a request/response connection to the model server. Calls are
// serialized; one request is in flight at a time.
type Client struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial connects to the server at host:port
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	slog.Info("model: connecting", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	conn.SetReadLimit(readLimit)
	return &Client{addr: addr, timeout: timeout, conn: conn}, nil
}

// Reset clears the server-side context
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.roundTrip(ctx, Request{Type: TypeReset})
	return err
}

// Info returns the model description
func (c *Client) Info(ctx context.Context) (Info, error) {
	resp, err := c.roundTrip(ctx, Request{Type: TypeInfo})
	if err != nil {
		return Info{}, err
	}
	if resp.Info == nil {
		return Info{}, fmt.Errorf("%w: info reply without info", ErrBadResponse)
	}
	info := *resp.Info
	if info.ActionRepeat < 1 {
		info.ActionRepeat = 1
	}
	return info, nil
}

// Predict sends one observation and returns the predicted action plan
func (c *Client) Predict(ctx context.Context, img image.Image) (Prediction, error) {
	ctx, span := tracer.Start(ctx, "model predict")
	defer span.End()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return Prediction{}, fmt.Errorf("encode observation: %w", err)
	}
	span.SetAttributes(attribute.Int("request.image_bytes", buf.Len()))

	resp, err := c.roundTrip(ctx, Request{Type: TypePredict, Image: buf.Bytes()})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "predict failed")
		return Prediction{}, err
	}
	if resp.Pred == nil {
		err := fmt.Errorf("%w: predict reply without pred", ErrBadResponse)
		span.RecordError(err)
		span.SetStatus(codes.Error, "predict failed")
		return Prediction{}, err
	}
	span.SetAttributes(attribute.Int("response.actions", len(resp.Pred.Buttons)))
	return *resp.Pred, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return Response{}, errors.New("model client closed")
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	// a cancelled context unblocks the pending read or write
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
		c.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	data, err := msgpack.Marshal(&req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal %s request: %w", req.Type, err)
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return Response{}, c.transportError(ctx, req.Type, err)
	}

	c.conn.SetReadDeadline(deadline)
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return Response{}, c.transportError(ctx, req.Type, err)
	}

	var resp Response
	if err := msgpack.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %s: %v", ErrBadResponse, req.Type, err)
	}
	if resp.Status != statusOK {
		msg := resp.Message
		if msg == "" {
			msg = "status " + resp.Status
		}
		return Response{}, fmt.Errorf("%w: %s: %s", ErrServer, req.Type, msg)
	}
	return resp, nil
}

func (c *Client) transportError(ctx context.Context, t RequestType, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s request: %w", t, ctxErr)
	}
	return fmt.Errorf("%s request: %w", t, err)
}

// Close sends a close frame and drops the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}
