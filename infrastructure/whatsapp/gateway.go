package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"

	// Drivers for the whatsmeow session store.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/AzielCF/az-blast/core/config"
	domainGateway "github.com/AzielCF/az-blast/domains/gateway"
)

// maxTypingDelay caps the simulated typing pause for very long messages.
const maxTypingDelay = 8 * time.Second

// Gateway drives a single paired WhatsApp session through whatsmeow. It
// serializes outbound sends behind a global rate limiter so campaign pacing
// can never be undercut by concurrent callers.
type Gateway struct {
	container *sqlstore.Container
	client    *whatsmeow.Client
	limiter   *rate.Limiter

	typingSpeed time.Duration
	userSuffix  string

	events domainGateway.Events
	log    waLog.Logger
}

var (
	_ domainGateway.IGateway = (*Gateway)(nil)
	_ domainGateway.ISession = (*Gateway)(nil)
)

// NewGateway opens the session store and builds the whatsmeow client. It does
// not connect; callers decide when to bring the session up.
func NewGateway(ctx context.Context, cfg *config.Config, callbacks domainGateway.Events) (*Gateway, error) {
	dbLog := waLog.Stdout("Database", cfg.Whatsapp.LogLevel, true)
	container, err := newContainer(ctx, cfg.Database.WhatsappURI, dbLog)
	if err != nil {
		return nil, fmt.Errorf("open whatsapp session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}

	osName := fmt.Sprintf("%s %s", cfg.Whatsapp.OSName, cfg.App.Version)
	store.DeviceProps.Os = &osName

	clientLog := waLog.Stdout("Client", cfg.Whatsapp.LogLevel, true)
	client := whatsmeow.NewClient(device, clientLog)
	client.EnableAutoReconnect = true
	client.AutoTrustIdentity = true

	g := &Gateway{
		container:   container,
		client:      client,
		limiter:     rate.NewLimiter(rate.Every(cfg.Campaign.MinSendGap), 1),
		typingSpeed: cfg.Campaign.TypingSpeed,
		userSuffix:  cfg.Whatsapp.UserSuffix,
		events:      callbacks,
		log:         clientLog,
	}
	client.AddEventHandler(g.handleEvent)

	return g, nil
}

func newContainer(ctx context.Context, uri string, dbLog waLog.Logger) (*sqlstore.Container, error) {
	if strings.HasPrefix(uri, "postgres:") {
		return sqlstore.New(ctx, "postgres", uri, dbLog)
	}
	return sqlstore.New(ctx, "sqlite3", uri, dbLog)
}

// IsConnected reports whether the socket is up and the device is logged in.
// A connected socket without a login cannot deliver messages.
func (g *Gateway) IsConnected() bool {
	return g.client.IsConnected() && g.client.IsLoggedIn()
}

func (g *Gateway) Connect() error {
	if g.client.IsConnected() {
		return nil
	}
	return g.client.Connect()
}

func (g *Gateway) Disconnect() {
	g.client.Disconnect()
}

// SendText delivers one text message. Blocks on the global send gap and,
// when requested, on a typing simulation proportional to the message length.
func (g *Gateway) SendText(ctx context.Context, address, body string, opts domainGateway.SendOptions) error {
	jid, err := g.formatJID(address)
	if err != nil {
		return &domainGateway.SendError{Kind: domainGateway.KindPermanent, Reason: err.Error()}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return &domainGateway.SendError{Kind: domainGateway.KindTransient, Reason: err.Error()}
	}

	if opts.ShowTyping {
		g.simulateTyping(ctx, jid, body)
	}

	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(body),
		},
	}

	_, err = g.client.SendMessage(ctx, jid, msg)
	if err != nil {
		sendErr := classifySendError(err)
		if g.events.MessageError != nil {
			g.events.MessageError(address, sendErr)
		}
		return sendErr
	}

	if g.events.MessageSent != nil {
		g.events.MessageSent(address)
	}
	return nil
}

// formatJID accepts a full JID or a bare phone number. Bare numbers get the
// configured user suffix appended.
func (g *Gateway) formatJID(address string) (types.JID, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(address), "+")
	if trimmed == "" {
		return types.JID{}, errors.New("empty address")
	}
	if !strings.ContainsRune(trimmed, '@') {
		trimmed += g.userSuffix
	}
	jid, err := types.ParseJID(trimmed)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid address %q: %w", address, err)
	}
	if jid.User == "" {
		return types.JID{}, fmt.Errorf("invalid address %q: missing user part", address)
	}
	return jid, nil
}

func (g *Gateway) simulateTyping(ctx context.Context, jid types.JID, body string) {
	if g.typingSpeed <= 0 {
		return
	}
	if err := g.client.SendChatPresence(ctx, jid, types.ChatPresenceComposing, types.ChatPresenceMediaText); err != nil {
		g.log.Debugf("Failed to send composing presence: %v", err)
		return
	}

	delay := time.Duration(len(body)) * g.typingSpeed
	if delay > maxTypingDelay {
		delay = maxTypingDelay
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}

	if err := g.client.SendChatPresence(ctx, jid, types.ChatPresencePaused, types.ChatPresenceMediaText); err != nil {
		g.log.Debugf("Failed to send paused presence: %v", err)
	}
}

// classifySendError maps whatsmeow failures onto the retry policy kinds.
func classifySendError(err error) *domainGateway.SendError {
	switch {
	case errors.Is(err, whatsmeow.ErrNotConnected) || errors.Is(err, whatsmeow.ErrNotLoggedIn):
		return &domainGateway.SendError{Kind: domainGateway.KindNotConnected, Reason: err.Error()}
	case errors.Is(err, whatsmeow.ErrBroadcastListUnsupported) || errors.Is(err, whatsmeow.ErrRecipientADJID):
		return &domainGateway.SendError{Kind: domainGateway.KindPermanent, Reason: err.Error()}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return &domainGateway.SendError{Kind: domainGateway.KindTransient, Reason: err.Error()}
	default:
		// Stream hiccups, timeouts and everything unrecognized get the
		// reset-and-retry treatment.
		return &domainGateway.SendError{Kind: domainGateway.KindTransient, Reason: err.Error()}
	}
}

// LoginQR starts pairing and returns the first QR code as PNG bytes plus the
// raw code string. The connection stays up afterwards waiting for the scan.
func (g *Gateway) LoginQR(ctx context.Context) ([]byte, string, error) {
	if g.client.Store.ID != nil {
		return nil, "", errors.New("already paired, logout first")
	}

	// The QR channel must be requested before Connect.
	qrChan, err := g.client.GetQRChannel(context.Background())
	if err != nil {
		if errors.Is(err, whatsmeow.ErrQRStoreContainsID) {
			return nil, "", errors.New("already paired, logout first")
		}
		return nil, "", err
	}

	if !g.client.IsConnected() {
		go func() {
			if err := g.client.Connect(); err != nil {
				g.log.Errorf("Connect for pairing failed: %v", err)
			}
		}()
	}

	for {
		select {
		case item, ok := <-qrChan:
			if !ok {
				return nil, "", errors.New("qr channel closed before a code arrived")
			}
			if item.Event != "code" || item.Code == "" {
				continue
			}
			png, err := qrcode.Encode(item.Code, qrcode.Medium, 256)
			if err != nil {
				return nil, "", err
			}
			if g.events.QRCode != nil {
				g.events.QRCode(item.Code)
			}
			return png, item.Code, nil
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
}

func (g *Gateway) Logout(ctx context.Context) error {
	if g.client.Store.ID == nil {
		return errors.New("not paired")
	}
	if err := g.client.Logout(ctx); err != nil {
		return err
	}
	g.client.Disconnect()
	return nil
}

func (g *Gateway) DeviceAddress() string {
	if g.client.Store == nil || g.client.Store.ID == nil {
		return ""
	}
	return g.client.Store.ID.String()
}

// Close disconnects and releases the session store.
func (g *Gateway) Close() {
	g.client.Disconnect()
	g.container.Close()
}

func (g *Gateway) handleEvent(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		logrus.Info("[GATEWAY] Session connected")
		if len(g.client.Store.PushName) > 0 {
			_ = g.client.SendPresence(context.Background(), types.PresenceAvailable)
		}
		if g.events.Connected != nil {
			g.events.Connected()
		}
	case *events.PairSuccess:
		logrus.WithField("device", evt.ID.String()).Info("[GATEWAY] Paired successfully")
		if g.events.Connected != nil {
			g.events.Connected()
		}
	case *events.Disconnected:
		logrus.Warn("[GATEWAY] Session disconnected")
		if g.events.Disconnected != nil {
			g.events.Disconnected()
		}
	case *events.LoggedOut:
		logrus.WithField("reason", evt.Reason.String()).Warn("[GATEWAY] Device logged out remotely")
		if g.events.Disconnected != nil {
			g.events.Disconnected()
		}
	case *events.StreamReplaced:
		logrus.Error("[GATEWAY] Stream replaced by another session")
		if g.events.Disconnected != nil {
			g.events.Disconnected()
		}
	}
}
