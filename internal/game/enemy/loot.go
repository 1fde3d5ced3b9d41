package enemy

import (
	"fmt"

	"github.com/cory-johannsen/survivors/internal/game/dice"
)

// LootTable defines the secondary drops rolled when an enemy dies. Each
// chance is rolled independently; the experience pickup always drops.
type LootTable struct {
	HealChance float64 `yaml:"heal_chance"`
	HealAmount float64 `yaml:"heal_amount"`
	// Currency is a dice expression such as "1d3+1".
	CurrencyChance float64 `yaml:"currency_chance"`
	Currency       string  `yaml:"currency"`
	// ChestChance is the rare-drop chance.
	ChestChance float64 `yaml:"chest_chance"`
}

// Validate checks that every chance is a probability and the currency
// expression parses.
//
// Precondition: lt must not be nil.
// Postcondition: an empty table is valid.
func (lt *LootTable) Validate() error {
	chances := []struct {
		name string
		p    float64
	}{
		{"heal_chance", lt.HealChance},
		{"currency_chance", lt.CurrencyChance},
		{"chest_chance", lt.ChestChance},
	}
	for _, c := range chances {
		if c.p < 0 || c.p > 1 {
			return fmt.Errorf("loot table: %s must be in [0, 1], got %f", c.name, c.p)
		}
	}
	if lt.HealChance > 0 && lt.HealAmount <= 0 {
		return fmt.Errorf("loot table: heal_amount must be > 0 when heal_chance is set")
	}
	if lt.CurrencyChance > 0 {
		if _, err := dice.Parse(lt.Currency); err != nil {
			return fmt.Errorf("loot table: currency: %w", err)
		}
	}
	return nil
}

// LootResult is what one kill dropped besides experience.
type LootResult struct {
	Heal     float64
	Currency int
	Chest    bool
}

// Empty reports whether nothing dropped.
func (r LootResult) Empty() bool {
	return r.Heal == 0 && r.Currency == 0 && !r.Chest
}

// GenerateLoot rolls lt. luck scales every chance (1 is neutral).
//
// Precondition: lt must have passed Validate(); roller must be non-nil.
// Postcondition: Currency >= 0; a nil table yields an empty result.
func GenerateLoot(lt *LootTable, roller *dice.Roller, luck float64) LootResult {
	var result LootResult
	if lt == nil {
		return result
	}
	if luck <= 0 {
		luck = 1
	}
	if roller.Chance(lt.HealChance * luck) {
		result.Heal = lt.HealAmount
	}
	if roller.Chance(lt.CurrencyChance * luck) {
		if r, err := roller.RollExpr(lt.Currency); err == nil && r.Total() > 0 {
			result.Currency = r.Total()
		}
	}
	result.Chest = roller.Chance(lt.ChestChance * luck)
	return result
}
