package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"storefront/internal/config"
	"storefront/internal/fetcher"
	"storefront/internal/model"
	"storefront/internal/state"
	"storefront/internal/storage"
)

// Telegram allows about 30 messages per second per bot; stay below it.
const (
	sendRate  = 20
	sendBurst = 5

	evictInterval = 10 * time.Minute
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Recorder receives usage metrics from the bot.
type Recorder interface {
	RecordFetch(err error, size int)
	RecordCommand(command string)
	RecordCartAddition()
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(error, int) {}
func (nopRecorder) RecordCommand(string)   {}
func (nopRecorder) RecordCartAddition()    {}

// Bot is the Telegram front-end of the storefront. Each chat gets its own
// catalog view, restored from the session store on first contact.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	cfg     *config.Config
	catalog state.Source
	metrics Recorder
	limiter *rate.Limiter
	log     *slog.Logger
	now     func() time.Time

	// Owned by the Run goroutine.
	sessions map[int64]*session
}

// New creates a Bot with the given Telegram token, storage and config.
// rec may be nil.
func New(token string, store storage.Storage, cfg *config.Config, rec Recorder, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Bot{
		api:      api,
		store:    store,
		cfg:      cfg,
		catalog:  fetcher.New(http.DefaultClient).Endpoint(cfg.CatalogURL),
		metrics:  rec,
		limiter:  rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		log:      log,
		now:      time.Now,
		sessions: make(map[int64]*session),
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	evict := time.NewTicker(evictInterval)
	defer evict.Stop()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.closeSessions()
			return
		case <-evict.C:
			b.evictIdle()
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.From == nil {
			return
		}
		if !b.cfg.IsUserAllowed(cb.From.ID) {
			b.answer(cb.ID, "Access denied.")
			return
		}
		b.handleCallback(ctx, cb)
		return
	}
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	if msg.From != nil && !b.cfg.IsUserAllowed(msg.From.ID) {
		b.reply(ctx, msg.Chat.ID, "Access denied.")
		return
	}
	b.handleCommand(ctx, msg)
}

// send delivers a message once the rate limiter allows it. Nothing is
// sent if ctx ends first.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if err := b.limiter.Wait(ctx); err != nil {
		b.log.Debug("send dropped", "error", err)
		return
	}
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("send message", "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	b.send(ctx, msg)
}

// answer acknowledges a callback query. A non-empty text is shown to the
// user as a short notification.
func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Error("answer callback", "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	s := b.session(ctx, chatID)

	known := true
	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(ctx, chatID)
	case cmdProducts:
		b.handleProducts(ctx, s, args)
	case "refresh":
		b.refresh(ctx, s)
	case "search":
		b.handleSearch(ctx, s, args)
	case "model":
		b.handleModels(ctx, s, args)
	case "brand":
		b.handleBrandFilter(ctx, s, args)
	case "brands":
		b.handleBrands(ctx, s)
	case cmdSort:
		b.handleSort(ctx, s, args)
	case "filter":
		b.handleShowFilter(ctx, s)
	case "reset":
		b.applyFilter(ctx, s, model.FilterSpec{}, "Filter cleared.")
	case "product":
		b.handleProduct(ctx, s, args)
	case cmdFav:
		b.handleFav(ctx, s, args)
	case "favorites":
		b.handleFavorites(ctx, s)
	case "add":
		b.handleAddToCart(ctx, s, args)
	case "remove":
		b.handleRemoveFromCart(ctx, s, args)
	case "cart":
		b.handleCart(ctx, s)
	case "clearcart":
		b.handleClearCart(ctx, s)
	default:
		known = false
		b.reply(ctx, chatID, "Unknown command. Use /help for a list of commands.")
	}
	if known {
		b.metrics.RecordCommand(cmd)
	}

	// The first command of a chat loads its catalog unless the command
	// already did.
	if s.view.Status() == state.StatusInitial {
		b.refresh(ctx, s)
	}
}
