package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRulesetIsValid(t *testing.T) {
	rs := Default()

	if rs.StagWinThreshold != 18 {
		t.Fatalf("expected stag threshold 18, got %d", rs.StagWinThreshold)
	}
	if rs.KingdomSize != 3 {
		t.Fatalf("expected kingdom size 3, got %d", rs.KingdomSize)
	}
	if rs.DeckSize() != 58 {
		t.Fatalf("expected 58 cards, got %d", rs.DeckSize())
	}
	if rs.StagDiscardCost(1) != 0 || rs.StagDiscardCost(6) != 3 {
		t.Fatalf("unexpected stag discard costs: 1->%d 6->%d", rs.StagDiscardCost(1), rs.StagDiscardCost(6))
	}
}

func TestStagCostTableIsMonotonic(t *testing.T) {
	rs := Default()
	prev := -1
	for v := 1; v <= 6; v++ {
		cost := rs.StagDiscardCost(v)
		if cost < prev {
			t.Fatalf("stag %d costs %d, less than previous %d", v, cost, prev)
		}
		prev = cost
	}
}

func TestHuntCountsGrowWithKingsCommands(t *testing.T) {
	rs := Default()
	if rs.HuntDiscards(0) != 2 || rs.HuntDiscards(2) != 4 {
		t.Fatalf("unexpected hunt discards %d/%d", rs.HuntDiscards(0), rs.HuntDiscards(2))
	}
	if rs.HuntDraws(1) != 3 {
		t.Fatalf("expected 3 hunt draws with one King's Command, got %d", rs.HuntDraws(1))
	}
}

func TestParseRejectsDecreasingCostTable(t *testing.T) {
	raw := strings.Replace(string(defaultRules), "  6: 3\n\n# stag value -> contributions", "  6: 1\n\n# stag value -> contributions", 1)
	if raw == string(defaultRules) {
		t.Fatal("fixture replacement did not apply")
	}
	if _, err := Parse([]byte(raw)); err == nil || !strings.Contains(err.Error(), "must not decrease") {
		t.Fatalf("expected monotonic cost error, got %v", err)
	}
}

func TestParseRejectsMissingAtonementEntry(t *testing.T) {
	raw := strings.Replace(string(defaultRules), "atonementCost:\n  1: 1\n", "atonementCost:\n", 1)
	if _, err := Parse([]byte(raw)); err == nil || !strings.Contains(err.Error(), "atonementCost") {
		t.Fatalf("expected atonement table error, got %v", err)
	}
}

func TestParseRejectsUnknownCardType(t *testing.T) {
	raw := string(defaultRules) + "  - { type: dragon, value: 1, copies: 1 }\n"
	if _, err := Parse([]byte(raw)); err == nil || !strings.Contains(err.Error(), "unknown card type") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	raw := strings.Replace(string(defaultRules), "baseHandLimit: 6", "baseHandLimit: 4", 1)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	rs, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rs.BaseHandLimit != 4 {
		t.Fatalf("expected hand limit 4, got %d", rs.BaseHandLimit)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	def, err := Load("")
	if err != nil || def.Name != "standard" {
		t.Fatalf("expected default ruleset for empty path, got %v / %v", def, err)
	}
}
