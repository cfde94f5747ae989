package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// Notifier delivers price alerts to watch owners.
type Notifier interface {
	PriceAlert(ctx context.Context, watch *models.PriceWatch, shoe *models.Shoe) error
}

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends alerts through the Telegram bot API.
type Telegram struct {
	client *resty.Client
	token  string
}

func NewTelegram(token string) *Telegram {
	return &Telegram{
		client: resty.New().
			SetBaseURL(telegramAPIBase).
			SetTimeout(15 * time.Second),
		token: token,
	}
}

func (t *Telegram) PriceAlert(ctx context.Context, watch *models.PriceWatch, shoe *models.Shoe) error {
	text := fmt.Sprintf("%s (%s) dropped to %s, at or below your target of %s.\n%s",
		shoe.Name, shoe.Article,
		shoe.EffectivePrice().StringFixed(2),
		watch.DesiredPrice.StringFixed(2),
		shoe.URL,
	)

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": watch.ChatID,
			"text":    text,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API returned %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
