package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// ErrNotOnWhatsApp is returned when the recipient number has no account.
var ErrNotOnWhatsApp = errors.New("number is not on WhatsApp")

// WhatsAppConfig configures the WhatsApp sender.
type WhatsAppConfig struct {
	// DataDir holds the device session database.
	DataDir string
	// CountryCode is prefixed to local numbers that start with a trunk 0.
	CountryCode string
}

// WhatsApp sends messages through a linked WhatsApp device.
type WhatsApp struct {
	client      *whatsmeow.Client
	countryCode string
	log         zerolog.Logger
}

// NewWhatsApp opens (or creates) the device store under cfg.DataDir. Call
// Connect before the first Send.
func NewWhatsApp(ctx context.Context, cfg WhatsAppConfig) (*WhatsApp, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("whatsapp data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(cfg.DataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("whatsapp store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp device: %w", err)
	}

	w := &WhatsApp{
		client:      whatsmeow.NewClient(device, nil),
		countryCode: cfg.CountryCode,
		log:         log.With().Str("component", "whatsapp").Logger(),
	}
	w.client.AddEventHandler(w.handleEvent)
	return w, nil
}

// Connect logs in. On first run it prints a pairing QR code to stdout and
// blocks until the device is linked or ctx is done.
func (w *WhatsApp) Connect(ctx context.Context) error {
	if w.client.Store.ID != nil {
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("whatsapp connect: %w", err)
		}
		return nil
	}

	qrChan, err := w.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp qr channel: %w", err)
	}
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp connect: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			q, err := qrcode.New(evt.Code, qrcode.Medium)
			if err != nil {
				w.log.Warn().Err(err).Str("code", evt.Code).Msg("render pairing QR")
				continue
			}
			fmt.Println("\n" + q.ToSmallString(false))
			w.log.Info().Msg("scan the QR code above from WhatsApp > Linked Devices")
		case "success":
			w.log.Info().Msg("device linked")
			return nil
		default:
			w.log.Info().Str("event", evt.Event).Msg("pairing event")
		}
	}
	if w.client.Store.ID == nil {
		return errors.New("whatsapp pairing did not complete")
	}
	return nil
}

// Disconnect closes the websocket.
func (w *WhatsApp) Disconnect() { w.client.Disconnect() }

// Send resolves the phone to a WhatsApp JID and delivers text.
func (w *WhatsApp) Send(ctx context.Context, phone, text string) error {
	phone = InternationalNumber(phone, w.countryCode)

	resp, err := w.client.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("verify number: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return ErrNotOnWhatsApp
	}
	jid := resp[0].JID
	if jid.IsEmpty() {
		jid = types.NewJID(phone, types.DefaultUserServer)
	}

	msg := &waE2E.Message{Conversation: &text}
	if _, err := w.client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	w.log.Debug().Str("jid", jid.String()).Msg("message delivered")
	return nil
}

func (w *WhatsApp) handleEvent(evt any) {
	switch evt.(type) {
	case *events.Connected:
		w.log.Info().Msg("connected")
	case *events.Disconnected:
		w.log.Warn().Msg("disconnected")
	case *events.LoggedOut:
		w.log.Error().Msg("logged out; delete the session store and pair again")
	}
}

// InternationalNumber turns a digits-only local number into international
// form: a single trunk 0 is replaced by countryCode, and a stray 0 after
// the country code is dropped.
func InternationalNumber(phone, countryCode string) string {
	if countryCode == "" {
		return phone
	}
	if strings.HasPrefix(phone, "0") && !strings.HasPrefix(phone, "00") {
		return countryCode + phone[1:]
	}
	if strings.HasPrefix(phone, "00") {
		return phone[2:]
	}
	if strings.HasPrefix(phone, countryCode+"0") {
		return countryCode + phone[len(countryCode)+1:]
	}
	return phone
}
