package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/retry"

	"go.uber.org/zap"
)

const _discordHTTPTimeout = 10 * time.Second

// DiscordSender posts notifications through the Discord REST API, either
// into a configured guild channel or as a direct message to the linked
// account. The bot and OAuth linking flow are external; this sink only
// needs the bot token.
type DiscordSender struct {
	token   string
	apiBase string
	client  *http.Client
	log     *zap.Logger
	retry   retry.Strategy
}

func NewDiscordSender(token, apiBase string, strategy retry.Strategy, log *zap.Logger) *DiscordSender {
	return &DiscordSender{
		token:   token,
		apiBase: apiBase,
		client:  &http.Client{Timeout: _discordHTTPTimeout},
		log:     log,
		retry:   strategy,
	}
}

func (s *DiscordSender) Send(ctx context.Context, target entity.ChannelTarget, event entity.NetworkEvent, effective entity.Priority) error {
	const op = "sender.DiscordSender.Send"

	if s.token == "" {
		return fmt.Errorf("%s: %w", op, entity.ErrNoChannelConfigured)
	}

	channelID := target.Address
	if target.Mode == entity.DiscordDirectMessage {
		var err error
		channelID, err = s.openDMChannel(ctx, target.Address)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	payload := map[string]any{
		"embeds": []discordEmbed{buildEmbed(event, effective)},
	}

	err := s.retry.Do(ctx, func() error {
		return s.post(ctx, fmt.Sprintf("%s/channels/%s/messages", s.apiBase, channelID), payload, nil)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("discord message sent",
		zap.String("channel_id", channelID),
		zap.String("mode", string(target.Mode)),
		zap.String("event_id", event.ID),
	)
	return nil
}

// openDMChannel resolves (or creates) the DM channel for a Discord user.
func (s *DiscordSender) openDMChannel(ctx context.Context, discordUserID string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	err := s.post(ctx, s.apiBase+"/users/@me/channels",
		map[string]any{"recipient_id": discordUserID}, &resp)
	if err != nil {
		return "", fmt.Errorf("open dm channel: %w", err)
	}
	return resp.ID, nil
}

func (s *DiscordSender) post(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord api %d: %s", resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Status probes the API with the configured token.
func (s *DiscordSender) Status(ctx context.Context) Status {
	status := Status{
		Channel:    entity.ChannelDiscord,
		Configured: s.token != "",
	}
	if !status.Configured {
		return status
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/users/@me", nil)
	if err != nil {
		return status
	}
	req.Header.Set("Authorization", "Bot "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return status
	}
	defer resp.Body.Close()

	status.Connected = resp.StatusCode == http.StatusOK
	return status
}
