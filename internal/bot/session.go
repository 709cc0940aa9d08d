package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storefront/internal/model"
	"storefront/internal/state"
)

type session struct {
	chatID      int64
	view        *state.View
	unsubscribe func()
	lastSeen    time.Time

	// quiet stops a successful load from posting the first page.
	quiet bool
}

// chatLoading shows the "typing" indicator while a chat's catalog loads.
type chatLoading struct {
	b      *Bot
	chatID int64
}

func (l chatLoading) Show() {
	if _, err := l.b.api.Request(tgbotapi.NewChatAction(l.chatID, tgbotapi.ChatTyping)); err != nil {
		l.b.log.Debug("send chat action", "chat_id", l.chatID, "error", err)
	}
}

// Hide is a no-op: Telegram clears the indicator on the next message.
func (l chatLoading) Hide() {}

// recordedSource reports every fetch to the metrics recorder.
type recordedSource struct {
	src state.Source
	rec Recorder
}

func (r recordedSource) Fetch(ctx context.Context) ([]model.Product, error) {
	products, err := r.src.Fetch(ctx)
	r.rec.RecordFetch(err, len(products))
	return products, err
}

// session returns the chat's session, creating and restoring it on first
// contact. Every use counts as activity for the sweeper.
func (b *Bot) session(ctx context.Context, chatID int64) *session {
	log := b.log.With("chat_id", chatID)
	if err := b.store.Touch(ctx, chatID); err != nil {
		log.Error("touch session", "error", err)
	}

	if s, ok := b.sessions[chatID]; ok {
		s.lastSeen = b.now()
		return s
	}

	view := state.New(recordedSource{src: b.catalog, rec: b.metrics}, chatLoading{b: b, chatID: chatID}, log)

	if spec, err := b.store.LoadFilter(ctx, chatID); err != nil {
		log.Error("load filter", "error", err)
	} else {
		view.SetFilter(spec)
	}
	if favs, err := b.store.ListFavorites(ctx, chatID); err != nil {
		log.Error("list favorites", "error", err)
	} else {
		view.RestoreFavorites(favs)
	}

	s := &session{chatID: chatID, view: view, lastSeen: b.now()}
	s.unsubscribe = view.Subscribe(b.renderer(ctx, s))
	b.sessions[chatID] = s
	log.Debug("session opened")
	return s
}

// evictIdle drops in-memory sessions not used within the session TTL.
// Their persisted choices stay in the store until the sweeper runs.
func (b *Bot) evictIdle() {
	cutoff := b.now().Add(-b.cfg.SessionTTL)
	for chatID, s := range b.sessions {
		if s.lastSeen.Before(cutoff) {
			s.unsubscribe()
			delete(b.sessions, chatID)
			b.log.Debug("session evicted", "chat_id", chatID)
		}
	}
}

func (b *Bot) closeSessions() {
	for chatID, s := range b.sessions {
		s.unsubscribe()
		delete(b.sessions, chatID)
	}
}

// renderer turns view updates into chat messages.
func (b *Bot) renderer(ctx context.Context, s *session) func(state.Snapshot) {
	chatID := s.chatID
	return func(snap state.Snapshot) {
		switch snap.Cause {
		case state.CauseCatalog:
			if snap.Status == state.StatusFailed {
				b.reply(ctx, chatID, "Could not load products: "+snap.Err)
				return
			}
			if s.quiet {
				return
			}
			b.sendPage(ctx, chatID, snap.Products, 1)
		case state.CauseFilter:
			switch snap.Status {
			case state.StatusReady:
				b.sendPage(ctx, chatID, snap.Products, 1)
			case state.StatusFailed:
				b.reply(ctx, chatID, "No products loaded. Use /refresh to try again.")
			}
		}
	}
}

// refresh reloads the chat's catalog. The outcome reaches the chat
// through the renderer.
func (b *Bot) refresh(ctx context.Context, s *session) {
	_ = s.view.Refresh(ctx)
}

// ensureLoaded loads the catalog if the chat never had one and reports
// whether a product list is available. The caller renders the result, so
// the load itself posts no page.
func (b *Bot) ensureLoaded(ctx context.Context, s *session) bool {
	if s.view.Status() == state.StatusInitial {
		s.quiet = true
		b.refresh(ctx, s)
		s.quiet = false
	}
	_, ok := s.view.Products()
	return ok
}

// applyFilter stores and activates a new filter. The confirmation goes
// out before the renderer posts the refiltered list.
func (b *Bot) applyFilter(ctx context.Context, s *session, spec model.FilterSpec, confirmation string) {
	if err := b.store.SaveFilter(ctx, s.chatID, spec); err != nil {
		b.log.Error("save filter", "chat_id", s.chatID, "error", err)
	}
	b.reply(ctx, s.chatID, confirmation)
	s.view.SetFilter(spec)
}

// sendPage posts one page of products with navigation and action buttons.
func (b *Bot) sendPage(ctx context.Context, chatID int64, products []model.Product, page int) {
	text, page, pages := FormatProductPage(products, page, b.cfg.PageSize)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if kb, ok := pageKeyboard(products, page, pages, b.cfg.PageSize); ok {
		msg.ReplyMarkup = kb
	}
	b.send(ctx, msg)
}

// editPage replaces a previously sent page in place.
func (b *Bot) editPage(ctx context.Context, chatID int64, messageID int, products []model.Product, page int) {
	text, page, pages := FormatProductPage(products, page, b.cfg.PageSize)
	if kb, ok := pageKeyboard(products, page, pages, b.cfg.PageSize); ok {
		b.send(ctx, tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb))
		return
	}
	b.send(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text))
}
