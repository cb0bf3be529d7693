package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/logging"
)

const (
	destructiveColor = 0xe74c3c

	// SendTimeout bounds one webhook delivery.
	SendTimeout = 5 * time.Second
)

var ErrBadWebhook = errors.New("invalid discord webhook url")

// DiscordSink posts toasts to a channel webhook as embeds coloured by
// rarity.
type DiscordSink struct {
	s       *discordgo.Session
	id      string
	token   string
	reg     *fish.Registry
	log     *log.Logger
	timeout time.Duration
	execute func(ctx context.Context, id, token string, params *discordgo.WebhookParams) error
}

// NewDiscordSink accepts a webhook url of the form
// https://discord.com/api/webhooks/{id}/{token}. reg is optional and
// supplies species thumbnails.
func NewDiscordSink(webhookURL string, reg *fish.Registry, logger *log.Logger) (*DiscordSink, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// webhooks carry their own token; the session needs no bot auth
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	d := &DiscordSink{s: session, id: id, token: token, reg: reg, log: logger, timeout: SendTimeout}
	d.execute = func(ctx context.Context, id, token string, params *discordgo.WebhookParams) error {
		_, err := d.s.WebhookExecute(id, token, false, params, discordgo.WithContext(ctx))
		return err
	}
	return d, nil
}

func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", ErrBadWebhook
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", ErrBadWebhook
}

// Notify delivers t, giving up after the sink's timeout or when ctx
// ends.
func (d *DiscordSink) Notify(ctx context.Context, t Toast) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{Embed(t, d.reg)},
	}
	if err := d.execute(ctx, d.id, d.token, params); err != nil {
		logREST(d.log, "webhook execute failed", err)
	}
}

// Embed renders a toast. Notices about a species get its rarity colour
// and, when reg knows the species, a thumbnail.
func Embed(t Toast, reg *fish.Registry) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       t.Title,
		Description: t.Description,
		Color:       fish.ColorForTier(fish.TierCommon),
	}
	if tier, ok := fish.ParseRarity(t.Rarity); ok {
		e.Color = fish.ColorForTier(tier)
	}
	if t.Variant == VariantDestructive {
		e.Color = destructiveColor
	}
	if t.Species != "" {
		if reg != nil {
			e.Thumbnail = reg.EmbedThumb(t.Species)
		}
		e.Footer = &discordgo.MessageEmbedFooter{Text: t.Species}
	}
	return e
}

func logREST(l *log.Logger, msg string, err error) {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		l.Error(msg, "code", rerr.Message.Code, "msg", rerr.Message.Message)
		return
	}
	l.Error(msg, "err", err)
}
