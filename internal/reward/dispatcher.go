package reward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/simpmc/simppay/internal/config"
	"go.uber.org/zap"
)

// placeholderPlayer is substituted with the target player in each command.
const placeholderPlayer = "%player%"

// RenderCommands substitutes the player placeholder into a command list.
func RenderCommands(commands []string, playerID string) []string {
	out := make([]string, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, strings.ReplaceAll(cmd, placeholderPlayer, playerID))
	}
	return out
}

// NewDispatcher returns the bridge dispatcher when a bridge URL is
// configured, otherwise a dispatcher that only logs. The log fallback keeps
// completion marking observable in environments without a command bridge.
func NewDispatcher(cfg config.Config, log *zap.Logger) Dispatcher {
	if cfg.RewardBridgeURL != "" {
		return &bridgeDispatcher{
			url:    cfg.RewardBridgeURL,
			client: &http.Client{Timeout: cfg.RequestTimeout},
			log:    log.Named("reward.bridge"),
		}
	}
	return &logDispatcher{log: log.Named("reward.dispatcher")}
}

type logDispatcher struct {
	log *zap.Logger
}

func (d *logDispatcher) Dispatch(ctx context.Context, playerID string, commands []string) error {
	_ = ctx
	d.log.Info("reward dispatched",
		zap.String("player_id", playerID),
		zap.Strings("commands", RenderCommands(commands, playerID)))
	return nil
}

type bridgeDispatcher struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

type bridgeRequest struct {
	PlayerID string   `json:"player_id"`
	Commands []string `json:"commands"`
}

func (d *bridgeDispatcher) Dispatch(ctx context.Context, playerID string, commands []string) error {
	body, err := json.Marshal(bridgeRequest{
		PlayerID: playerID,
		Commands: RenderCommands(commands, playerID),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("reward bridge: unexpected status %d", res.StatusCode)
	}
	return nil
}
