package milestone

import (
	"fmt"
	"os"

	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	"github.com/simpmc/simppay/internal/milestone/domain"
	"github.com/spf13/viper"
)

type definitionFile struct {
	Milestones []struct {
		ID       string   `mapstructure:"id"`
		Scope    string   `mapstructure:"scope"`
		Window   string   `mapstructure:"window"`
		Amount   int64    `mapstructure:"amount"`
		Message  string   `mapstructure:"message"`
		Commands []string `mapstructure:"commands"`
	} `mapstructure:"milestones"`
}

// LoadDefinitions reads milestone definitions from the YAML file. A missing
// file yields the built-in defaults so a fresh deployment works untouched.
func LoadDefinitions(path string) ([]domain.Definition, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultDefinitions(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read milestones: %w", err)
	}

	var file definitionFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parse milestones: %w", err)
	}

	defs := make([]domain.Definition, 0, len(file.Milestones))
	for _, m := range file.Milestones {
		scope := domain.Scope(m.Scope)
		if scope != domain.ScopePlayer && scope != domain.ScopeServer {
			return nil, fmt.Errorf("%w: scope %q", domain.ErrInvalidDefinition, m.Scope)
		}
		window, err := ledgerdomain.ParseWindow(m.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: window %q", domain.ErrInvalidDefinition, m.Window)
		}
		if m.Amount <= 0 {
			return nil, fmt.Errorf("%w: amount %d", domain.ErrInvalidDefinition, m.Amount)
		}
		if len(m.Commands) == 0 {
			return nil, fmt.Errorf("%w: no commands", domain.ErrInvalidDefinition)
		}

		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s-%d", scope, window, m.Amount)
		}
		defs = append(defs, domain.Definition{
			ID:       id,
			Scope:    scope,
			Window:   window,
			Amount:   m.Amount,
			Message:  m.Message,
			Commands: m.Commands,
		})
	}
	return defs, nil
}

// DefaultDefinitions mirror the sample configuration.
func DefaultDefinitions() []domain.Definition {
	return []domain.Definition{
		{
			ID:       "player-alltime-100000",
			Scope:    domain.ScopePlayer,
			Window:   ledgerdomain.WindowAllTime,
			Amount:   100000,
			Message:  "Ban da nap moc 100k!",
			Commands: []string{"give %player% diamond 16"},
		},
		{
			ID:       "player-alltime-500000",
			Scope:    domain.ScopePlayer,
			Window:   ledgerdomain.WindowAllTime,
			Amount:   500000,
			Message:  "Ban da nap moc 500k!",
			Commands: []string{"give %player% diamond_block 16"},
		},
		{
			ID:       "server-daily-1000000",
			Scope:    domain.ScopeServer,
			Window:   ledgerdomain.WindowDaily,
			Amount:   1000000,
			Message:  "Server dat moc nap 1M hom nay!",
			Commands: []string{"give %player% golden_apple 1"},
		},
	}
}
