package game

import (
	"sort"

	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/game/cards"
)

// StagPoints sums the stag values in a territory.
func StagPoints(p *PlayerState) int {
	return cards.SumValues(p.Territory, cards.TypeStag)
}

// checkStagWin ends the game if the player's stags reached the win threshold.
func (e *Engine) checkStagWin(s *GameState, p *PlayerState) bool {
	points := StagPoints(p)
	if points < e.rules.StagWinThreshold {
		return false
	}
	s.Winner = p.ID
	s.WinReason = WinReasonStag
	s.Pending = nil
	s.logf("%s reaches %d Stag Points and wins!", p.Name, points)
	return true
}

// scoreLine computes the deck-exhaustion result for one player.
func (e *Engine) scoreLine(p *PlayerState) ScoreLine {
	line := ScoreLine{
		PlayerID:      p.ID,
		Name:          p.Name,
		SeatIndex:     p.SeatIndex,
		StagPoints:    StagPoints(p),
		Tithes:        cards.Count(p.Territory, cards.TypeTithe),
		Contributions: p.ContributionsMade,
		Magi:          cards.Count(p.Territory, cards.TypeMagi),
		Healing:       cards.Count(p.Territory, cards.TypeHealing),
		Hunts:         cards.Count(p.Territory, cards.TypeHunt),
		KingsCommands: cards.Count(p.Territory, cards.TypeKingsCommand),
	}
	line.Score = line.StagPoints + e.rules.TitheScore*line.Tithes + line.Contributions
	return line
}

// ranksAbove orders by score, then Magi, Healing, Hunt and King's Command counts.
func ranksAbove(a, b ScoreLine) bool {
	for _, pair := range [][2]int{
		{a.Score, b.Score},
		{a.Magi, b.Magi},
		{a.Healing, b.Healing},
		{a.Hunts, b.Hunts},
		{a.KingsCommands, b.KingsCommands},
	} {
		if pair[0] != pair[1] {
			return pair[0] > pair[1]
		}
	}
	return false
}

// RankStandings sorts score lines into final order. Lines equal on every
// tiebreak keep seat order and are flagged as tied.
func RankStandings(lines []ScoreLine) []ScoreLine {
	ranked := append([]ScoreLine(nil), lines...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranksAbove(ranked[i], ranked[j]) })
	for i := 1; i < len(ranked); i++ {
		if !ranksAbove(ranked[i-1], ranked[i]) {
			ranked[i-1].Tied = true
			ranked[i].Tied = true
		}
	}
	return ranked
}

// triggerDeckExhaustion scores every surviving player and declares a winner.
func (e *Engine) triggerDeckExhaustion(s *GameState) {
	s.logf("The deck has run out! Scoring final results...")
	s.Pending = nil

	lines := make([]ScoreLine, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Eliminated {
			continue
		}
		line := e.scoreLine(p)
		s.logf("%s: %d Stag + %d Tithe(%dx%d) + %d contributions = %d",
			p.Name, line.StagPoints, e.rules.TitheScore*line.Tithes, line.Tithes, e.rules.TitheScore,
			line.Contributions, line.Score)
		lines = append(lines, line)
	}
	s.Standings = RankStandings(lines)
	if len(s.Standings) == 0 {
		return
	}

	top := s.Standings[0]
	s.Winner = top.PlayerID
	s.WinReason = WinReasonDeckOut
	if top.Tied {
		s.logf("%s is tied for first and wins on seat order.", top.Name)
	}
	s.logf("%s wins!", top.Name)
	e.logger.Debug("deck exhausted", zap.String("winner", top.PlayerID), zap.Int("score", top.Score))
}
