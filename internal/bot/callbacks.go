package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storefront/internal/model"
)

const (
	cmdProducts = "products"
	cmdSort     = "sort"
	cmdFav      = "fav"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	action, n, err := ParseCallbackData(cb.Data)
	if err != nil {
		b.answer(cb.ID, "")
		b.log.Debug("ignore callback", "data", cb.Data, "error", err)
		return
	}

	b.log.Info("callback",
		"action", action,
		"value", n,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	s := b.session(ctx, chatID)

	switch action {
	case actionPage:
		b.answer(cb.ID, "")
		if !b.ensureLoaded(ctx, s) {
			b.reply(ctx, chatID, noCatalog)
			return
		}
		products, _ := s.view.Products()
		b.editPage(ctx, chatID, cb.Message.MessageID, products, int(n))
	case actionSort:
		if n == sortUnset {
			b.answer(cb.ID, "Sorting off")
			b.setSort(ctx, s, 0, false)
			return
		}
		opt := model.SortOption(n)
		if !opt.Valid() {
			b.answer(cb.ID, "Unknown sort option")
			return
		}
		b.answer(cb.ID, opt.Title())
		b.setSort(ctx, s, opt, true)
	case actionFav:
		text := b.toggleFavorite(ctx, s, n)
		b.answer(cb.ID, text)
		b.updateFavButtons(ctx, cb.Message, s)
	case actionCart:
		text := b.addToCart(ctx, s, n, 1)
		b.answer(cb.ID, text)
	default:
		// actionNoop and unknown actions only need the spinner cleared.
		b.answer(cb.ID, "")
	}
}

// updateFavButtons redraws the star buttons of a page message after a
// favorite changed.
func (b *Bot) updateFavButtons(ctx context.Context, msg *tgbotapi.Message, s *session) {
	if msg.ReplyMarkup == nil {
		return
	}
	kb, changed := withFavLabels(*msg.ReplyMarkup, s.view.Lookup)
	if !changed {
		return
	}
	b.send(ctx, tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, msg.MessageID, kb))
}
