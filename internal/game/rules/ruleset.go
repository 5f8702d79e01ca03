package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// CardSpec describes how many copies of one (type, value) pair go into the deck.
type CardSpec struct {
	Type   string `yaml:"type"`
	Value  int    `yaml:"value"`
	Copies int    `yaml:"copies"`
}

// HuntRules holds the hunt numbers. Both counts grow by one per King's Command
// in the hunter's territory.
type HuntRules struct {
	BaseDiscards int `yaml:"baseDiscards"`
	BaseDraws    int `yaml:"baseDraws"`
}

// TitheRules holds the tithe discard/draw loop numbers.
type TitheRules struct {
	Discard          int `yaml:"discard"`
	Draw             int `yaml:"draw"`
	MaxContributions int `yaml:"maxContributions"`
}

// NoTerritoryRules is the compensation for a player with no playable territory card.
type NoTerritoryRules struct {
	Burn int `yaml:"burn"`
	Draw int `yaml:"draw"`
}

// Ruleset carries every game-design constant the engine consults.
// None of these numbers are algorithm; they are tuned by the game's designers.
type Ruleset struct {
	Name                  string           `yaml:"name"`
	MinSeats              int              `yaml:"minSeats"`
	MaxSeats              int              `yaml:"maxSeats"`
	StagWinThreshold      int              `yaml:"stagWinThreshold"`
	StartingContributions int              `yaml:"startingContributions"`
	KingdomSize           int              `yaml:"kingdomSize"`
	BaseHandLimit         int              `yaml:"baseHandLimit"`
	TitheScore            int              `yaml:"titheScore"`
	MagiSplitTotal        int              `yaml:"magiSplitTotal"`
	Hunt                  HuntRules        `yaml:"hunt"`
	Tithe                 TitheRules       `yaml:"tithe"`
	NoTerritory           NoTerritoryRules `yaml:"noTerritory"`
	StagDiscardCostTable  map[int]int      `yaml:"stagDiscardCost"`
	AtonementCostTable    map[int]int      `yaml:"atonementCost"`
	Composition           []CardSpec       `yaml:"composition"`
}

// Default returns the ruleset embedded in the binary.
func Default() *Ruleset {
	rs, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded ruleset is invalid: %v", err))
	}
	return rs
}

// Load reads and validates a ruleset file. An empty path yields the default ruleset.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	rs, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("ruleset %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a YAML ruleset and validates it.
func Parse(raw []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("decode ruleset: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks internal consistency of the tables and counts.
func (rs *Ruleset) Validate() error {
	if rs.MinSeats < 2 || rs.MaxSeats < rs.MinSeats {
		return fmt.Errorf("invalid seat range %d..%d", rs.MinSeats, rs.MaxSeats)
	}
	if rs.StagWinThreshold <= 0 {
		return fmt.Errorf("stagWinThreshold must be positive")
	}
	if rs.KingdomSize <= 0 {
		return fmt.Errorf("kingdomSize must be positive")
	}
	if rs.BaseHandLimit < 0 || rs.StartingContributions < 0 || rs.MagiSplitTotal <= 0 {
		return fmt.Errorf("baseHandLimit, startingContributions and magiSplitTotal must be non-negative")
	}
	if rs.Tithe.Discard < 0 || rs.Tithe.Draw < 0 || rs.Tithe.MaxContributions < 0 {
		return fmt.Errorf("tithe counts must be non-negative")
	}
	if rs.Hunt.BaseDiscards < 0 || rs.Hunt.BaseDraws < 0 {
		return fmt.Errorf("hunt counts must be non-negative")
	}
	if rs.NoTerritory.Burn < 0 || rs.NoTerritory.Draw < 0 {
		return fmt.Errorf("noTerritory counts must be non-negative")
	}

	known := map[string]bool{
		"stag": true, "hunt": true, "healing": true,
		"magi": true, "tithe": true, "kingscommand": true,
	}
	total := 0
	stagValues := make(map[int]bool)
	for i, spec := range rs.Composition {
		if !known[spec.Type] {
			return fmt.Errorf("composition[%d]: unknown card type %q", i, spec.Type)
		}
		if spec.Value <= 0 || spec.Copies <= 0 {
			return fmt.Errorf("composition[%d]: value and copies must be positive", i)
		}
		if spec.Type == "stag" {
			stagValues[spec.Value] = true
		}
		total += spec.Copies
	}

	values := make([]int, 0, len(stagValues))
	for v := range stagValues {
		if _, ok := rs.StagDiscardCostTable[v]; !ok {
			return fmt.Errorf("stagDiscardCost has no entry for stag value %d", v)
		}
		if _, ok := rs.AtonementCostTable[v]; !ok {
			return fmt.Errorf("atonementCost has no entry for stag value %d", v)
		}
		values = append(values, v)
	}
	sort.Ints(values)
	for i := 1; i < len(values); i++ {
		if rs.StagDiscardCostTable[values[i]] < rs.StagDiscardCostTable[values[i-1]] {
			return fmt.Errorf("stagDiscardCost must not decrease (stag %d costs less than stag %d)", values[i], values[i-1])
		}
	}

	// Every seat is dealt 2+ante cards, plus one burn and a full kingdom.
	needed := 1 + rs.KingdomSize
	for seat := 0; seat < rs.MaxSeats; seat++ {
		needed += 2 + seat + 1
	}
	if total < needed {
		return fmt.Errorf("deck of %d cards cannot seat %d players (needs %d)", total, rs.MaxSeats, needed)
	}
	return nil
}

// DeckSize returns the number of cards the composition produces.
func (rs *Ruleset) DeckSize() int {
	n := 0
	for _, spec := range rs.Composition {
		n += spec.Copies
	}
	return n
}

// StagDiscardCost returns how many hand cards must be discarded to play a stag of value v.
func (rs *Ruleset) StagDiscardCost(v int) int {
	return rs.StagDiscardCostTable[v]
}

// AtonementCost returns the contributions owed for discarding a stag of value v.
func (rs *Ruleset) AtonementCost(v int) int {
	return rs.AtonementCostTable[v]
}

// HuntDiscards is the number of cards each non-averting opponent discards.
func (rs *Ruleset) HuntDiscards(kingsCommands int) int {
	return rs.Hunt.BaseDiscards + kingsCommands
}

// HuntDraws is the number of cards the hunter draws before averters are subtracted.
func (rs *Ruleset) HuntDraws(kingsCommands int) int {
	return rs.Hunt.BaseDraws + kingsCommands
}
