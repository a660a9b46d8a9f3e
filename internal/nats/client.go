package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrRejected wraps the error text of a control request the service refused.
var ErrRejected = errors.New("request rejected")

// ControlClient sends control requests to a running gpioled.
type ControlClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewControlClient connects to the NATS server at url.
func NewControlClient(url string, logger *slog.Logger) (*ControlClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("gpioled-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, err
	}

	return &ControlClient{
		conn:   conn,
		logger: logger.With("component", "nats-control"),
	}, nil
}

// SetBrightness asks the service to write b to the named LED.
func (c *ControlClient) SetBrightness(ctx context.Context, name string, b int) error {
	return c.request(ctx, ControlMessage{Action: ActionSetBrightness, Name: name, Brightness: b})
}

// SetTrigger asks the service to switch the named LED to trigger.
func (c *ControlClient) SetTrigger(ctx context.Context, name, trigger string) error {
	return c.request(ctx, ControlMessage{Action: ActionSetTrigger, Name: name, Trigger: trigger})
}

func (c *ControlClient) request(ctx context.Context, m ControlMessage) error {
	m.Timestamp = time.Now().Format(time.RFC3339)
	data, err := m.Marshal()
	if err != nil {
		return err
	}

	msg, err := c.conn.RequestWithContext(ctx, SubjectLEDControl(m.Name), data)
	if err != nil {
		return fmt.Errorf("%s %s: %w", m.Action, m.Name, err)
	}

	reply, err := UnmarshalReply(msg.Data)
	if err != nil {
		return fmt.Errorf("invalid reply: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("%w: %s", ErrRejected, reply.Error)
	}

	c.logger.Debug("Control request applied", "action", m.Action, "led", m.Name)
	return nil
}

// Close closes the connection.
func (c *ControlClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
