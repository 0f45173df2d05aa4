package app

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"entrade/internal/config"
	"entrade/internal/logging"
	"entrade/internal/market"
	"entrade/internal/negotiate"
	"entrade/internal/order"
	"entrade/internal/session"
	"entrade/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// Out receives command output (tables, confirmations). Defaults to
	// stdout; logs go to stderr independently.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app"), Out: os.Stdout}
}

func (a *App) newSession() (*session.Session, error) {
	sess, err := session.Load(session.Options{
		Token:     a.Config.Session.Token,
		TokenFile: a.Config.Session.TokenFile,
	})
	if err != nil {
		return nil, err
	}

	if sess.Expired(time.Now()) {
		a.Logger.Warn().Time("expired_at", sess.ExpiresAt()).
			Msg("session token is expired; the marketplace will reject authenticated calls")
	}
	return sess, nil
}

func (a *App) newClient(sess *session.Session) *market.Client {
	return market.NewClient(market.Options{
		BaseURL:   a.Config.API.BaseURL,
		Timeout:   a.Config.API.RequestTimeout,
		UserAgent: a.Config.API.UserAgent,
	}, sess, a.Logger)
}

func (a *App) newNegotiator(resolver market.MinEndTimeResolver) *negotiate.Negotiator {
	return negotiate.New(resolver, negotiate.Options{
		Debounce:       a.Config.Negotiate.Debounce,
		RequestTimeout: a.Config.Negotiate.RequestTimeout,
	}, a.Logger)
}

func (a *App) openJournal(ctx context.Context) (*storage.Store, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil || store == nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// SubmitOptions hold parameters for composing and submitting one order.
type SubmitOptions struct {
	OrderType order.Type
	AmountKwh string
	Price     string
	StartTime string
	EndTime   string
	// Preset is applied first, then WeightEdits ("key=value" pairs) in
	// sequence; each edit renormalises the vector. BUY only.
	Preset      string
	WeightEdits []string
}

// CancelOptions configure the cancel command.
type CancelOptions struct {
	OrderID int64
	Yes     bool
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting journaled snapshots.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
