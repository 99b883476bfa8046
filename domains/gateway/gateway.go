package gateway

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a send failure for the dispatcher's retry policy.
type FailureKind string

const (
	// KindNotConnected: the session is down; fatal for this attempt, the
	// dispatcher decides whether the contact loop continues.
	KindNotConnected FailureKind = "not_connected"
	// KindTransient: the underlying automation session hiccuped mid-send;
	// recoverable via a bounded gateway reset.
	KindTransient FailureKind = "transient"
	// KindPermanent: the send can never succeed (malformed address,
	// rejected content); never retried.
	KindPermanent FailureKind = "permanent"
	// KindReconnectFailed: a gateway reset ran out of its polling budget.
	KindReconnectFailed FailureKind = "reconnect_failed"
)

// SendError is the typed failure every gateway send returns. Ordinary
// delivery failures are values of this type, never panics.
type SendError struct {
	Kind   FailureKind
	Reason string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("gateway send failed (%s): %s", e.Kind, e.Reason)
}

// ConnectionDown reports whether the failure means the session itself is
// gone, as opposed to this one message being rejected.
func (e *SendError) ConnectionDown() bool {
	return e.Kind == KindNotConnected || e.Kind == KindReconnectFailed
}

// AsSendError extracts the typed failure from err. Unknown errors are treated
// as transient so the reset-and-retry policy gets a chance at them.
func AsSendError(err error) *SendError {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr
	}
	return &SendError{Kind: KindTransient, Reason: err.Error()}
}

// SendOptions carries per-send behavior flags through the gateway.
type SendOptions struct {
	// ShowTyping makes the gateway simulate a typing delay before the send.
	ShowTyping bool
}

// Events is the closed callback set the gateway exposes instead of an
// open-ended emitter. Nil callbacks are skipped.
type Events struct {
	Connected    func()
	Disconnected func()
	QRCode       func(code string)
	MessageSent  func(address string)
	MessageError func(address string, err error)
}

// IGateway is the narrow messaging capability the dispatcher depends on.
// Address formatting is the gateway's job; callers pass the contact's raw
// phone field through unchanged.
type IGateway interface {
	// IsConnected is a cheap, non-blocking liveness check.
	IsConnected() bool
	Connect() error
	Disconnect()
	// SendText may block (typing simulation, rate pacing, network).
	// Ordinary failures come back as *SendError.
	SendText(ctx context.Context, address, body string, opts SendOptions) error
}

// ISession is the pairing/session surface used by the REST layer; the
// dispatcher never touches it.
type ISession interface {
	// LoginQR returns a QR code (PNG bytes plus the raw code) for pairing a
	// new device. Fails if the session is already paired.
	LoginQR(ctx context.Context) ([]byte, string, error)
	Logout(ctx context.Context) error
	// DeviceAddress returns the paired account address, empty when unpaired.
	DeviceAddress() string
}
