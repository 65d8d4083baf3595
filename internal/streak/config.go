package streak

import (
	"fmt"
	"os"
	"sort"

	"github.com/simpmc/simppay/internal/streak/domain"
	"github.com/spf13/viper"
)

type tierFile struct {
	Tiers []struct {
		Days     int      `mapstructure:"days"`
		Message  string   `mapstructure:"message"`
		Commands []string `mapstructure:"commands"`
	} `mapstructure:"tiers"`
}

// LoadTiers reads streak tiers from the YAML file, sorted ascending by days.
// A missing file yields the built-in defaults.
func LoadTiers(path string) ([]domain.Tier, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultTiers(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read streak tiers: %w", err)
	}

	var file tierFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parse streak tiers: %w", err)
	}

	tiers := make([]domain.Tier, 0, len(file.Tiers))
	for _, t := range file.Tiers {
		if t.Days <= 0 {
			return nil, fmt.Errorf("%w: days %d", domain.ErrInvalidTier, t.Days)
		}
		if len(t.Commands) == 0 {
			return nil, fmt.Errorf("%w: no commands", domain.ErrInvalidTier)
		}
		tiers = append(tiers, domain.Tier{
			Days:     t.Days,
			Message:  t.Message,
			Commands: t.Commands,
		})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Days < tiers[j].Days })
	return tiers, nil
}

// DefaultTiers mirror the sample configuration.
func DefaultTiers() []domain.Tier {
	return []domain.Tier{
		{Days: 3, Message: "Chuoi nap 3 ngay!", Commands: []string{"give %player% iron_ingot 32"}},
		{Days: 7, Message: "Chuoi nap 7 ngay!", Commands: []string{"give %player% gold_ingot 32"}},
		{Days: 14, Message: "Chuoi nap 14 ngay!", Commands: []string{"give %player% diamond 32"}},
		{Days: 30, Message: "Chuoi nap 30 ngay!", Commands: []string{"give %player% netherite_ingot 8"}},
	}
}
