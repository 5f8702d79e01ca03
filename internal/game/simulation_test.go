package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/game/cards"
	"github.com/stagcourt/stag-server/internal/game/rules"
)

const simulationStepLimit = 3000

// TestRandomGamesKeepInvariants drives whole games with random legal moves
// and checks the properties that must hold after every accepted action.
func TestRandomGamesKeepInvariants(t *testing.T) {
	names := []string{"Ann", "Bob", "Cat", "Dan", "Eve", "Fay"}
	for players := 2; players <= 6; players++ {
		for seed := uint64(1); seed <= 4; seed++ {
			t.Run(fmt.Sprintf("%dp/seed%d", players, seed), func(t *testing.T) {
				rng := rand.New(rand.NewPCG(seed, uint64(players)))
				e := NewEngine(rules.Default(), zap.NewNop(), WithShuffler(rng.Shuffle))
				s, err := e.NewGame(seatsFor(names[:players]...))
				require.NoError(t, err)
				runSimulation(t, e, s, rng)
			})
		}
	}
}

func runSimulation(t *testing.T, e *Engine, s *GameState, rng *rand.Rand) {
	t.Helper()
	universe := sortedCards(s.AllCards())
	require.Len(t, universe, e.Rules().DeckSize())

	for step := 0; step < simulationStepLimit && !s.Finished(); step++ {
		actor, action, payload := chooseMove(e, s, rng)
		view, err := e.Project(s, actor.ID)
		require.NoError(t, err)
		require.Contains(t, view.AvailableActions, action, "step %d: %s", step, describe(s))

		turnHolder := s.CurrentSeat()
		turn := s.Turn
		next, err := e.Apply(s, actor.ID, action, payload)
		require.NoError(t, err, "step %d: %s by %s with %+v (%s)", step, action, actor.Name, payload, describe(s))

		assert.Equal(t, universe, sortedCards(next.AllCards()), "step %d: cards not conserved after %s", step, action)
		if next.Finished() {
			assert.Nil(t, next.Pending)
			assert.NotEmpty(t, next.WinReason)
		} else {
			assert.GreaterOrEqual(t, len(next.PlayerOrder), 2)
			if next.Pending != nil {
				assert.False(t, next.mustSeat(next.Pending.Responder()).Eliminated, "pending responder is eliminated")
			}
		}
		if next.Turn != turn && !next.Finished() {
			ended := next.mustSeat(turnHolder)
			if !ended.Eliminated {
				assert.LessOrEqual(t, len(ended.Hand), e.HandLimit(ended), "step %d: %s ended turn over the hand limit", step, ended.Name)
			}
		}
		for _, p := range next.Players {
			assert.GreaterOrEqual(t, p.ContributionsRemaining, 0)
			if p.Eliminated {
				assert.NotContains(t, next.PlayerOrder, p.SeatIndex)
			}
		}
		s = next
	}
}

// chooseMove picks a random legal action for whoever the game is waiting on.
func chooseMove(e *Engine, s *GameState, rng *rand.Rand) (*PlayerState, string, Payload) {
	if s.Pending != nil {
		p := s.mustSeat(s.Pending.Responder())
		return p, s.Pending.Action(), pendingPayload(e, s, p, rng)
	}

	p := s.CurrentPlayer()
	switch s.TurnPhase {
	case PhaseKingdomAction:
		options := e.AvailableActions(s, p)
		switch options[rng.IntN(len(options))] {
		case ActionDraftKingdom:
			return p, ActionDraftKingdom, Payload{CardID: pick(rng, s.Kingdom)}
		case ActionPlayStag:
			return p, ActionPlayStag, stagPayload(e, p, rng)
		default:
			return p, ActionDrawCard, Payload{}
		}
	default:
		var playable []cards.ID
		for _, id := range p.Hand {
			if !cards.Is(id, cards.TypeStag) {
				playable = append(playable, id)
			}
		}
		if len(playable) == 0 {
			return p, ActionNoTerritory, Payload{}
		}
		return p, ActionPlayTerritory, Payload{CardID: pick(rng, playable)}
	}
}

func pendingPayload(e *Engine, s *GameState, p *PlayerState, rng *rand.Rand) Payload {
	switch pending := s.Pending.(type) {
	case *DraftKingdom, *StagKingdomDraft, *StagKingdomPickSelf:
		return Payload{CardID: pick(rng, s.Kingdom)}
	case *HuntResponse:
		return huntPayload(p, pending.HuntTotalValue, rng)
	case *HuntDiscard:
		return Payload{CardIDs: randomSubset(rng, p.Hand, min(pending.DiscardsPerPlayer, len(p.Hand)))}
	case *MagiChoice:
		total := e.Rules().MagiSplitTotal
		top := rng.IntN(total + 1)
		bottom := rng.IntN(total - top + 1)
		return Payload{DrawTop: intp(top), DrawBottom: intp(bottom), PlaceBottom: intp(total - top - bottom)}
	case *MagiPlaceCards:
		return Payload{CardIDs: randomSubset(rng, p.Hand, pending.PlaceBottomCount)}
	case *TitheDiscard:
		return Payload{CardIDs: randomSubset(rng, p.Hand, min(e.Rules().Tithe.Discard, len(p.Hand)))}
	case *TitheContribute:
		return Payload{Contribute: rng.IntN(2) == 0}
	case *KingCommandResponse:
		var stags []cards.ID
		for _, id := range p.Hand {
			if cards.Is(id, cards.TypeStag) {
				stags = append(stags, id)
			}
		}
		if len(stags) == 0 {
			return Payload{}
		}
		return Payload{CardID: pick(rng, stags)}
	case *KingCommandCollect:
		return Payload{CardIDs: randomSubset(rng, pending.DiscardedStags, rng.IntN(len(pending.DiscardedStags)+1))}
	case *DiscardToHandLimit:
		return Payload{CardIDs: randomSubset(rng, p.Hand, pending.MustDiscard)}
	}
	panic(fmt.Sprintf("unhandled pending %T", s.Pending))
}

// huntPayload averts whenever the player can cover the threat, most of the time.
func huntPayload(p *PlayerState, threat int, rng *rand.Rand) Payload {
	var healing, magi []cards.ID
	for _, id := range p.Hand {
		if cards.Is(id, cards.TypeHealing) {
			healing = append(healing, id)
		}
	}
	for _, id := range p.Territory {
		if cards.Is(id, cards.TypeMagi) && !contains(p.TerritoryMagiAsHealing, id) {
			magi = append(magi, id)
		}
	}

	need := threat - HealingValue(p)
	if need > len(healing)+len(magi) || rng.IntN(4) == 0 {
		return Payload{}
	}
	payload := Payload{Avert: true}
	for _, id := range healing {
		if need <= 0 {
			break
		}
		payload.HealingIDs = append(payload.HealingIDs, id)
		need--
	}
	for _, id := range magi {
		if need <= 0 {
			break
		}
		payload.MagiIDs = append(payload.MagiIDs, id)
		need--
	}
	return payload
}

func stagPayload(e *Engine, p *PlayerState, rng *rand.Rand) Payload {
	var affordable []cards.ID
	for _, id := range p.Hand {
		if cards.Is(id, cards.TypeStag) && e.Rules().StagDiscardCost(cards.Value(id)) <= len(p.Hand)-1 {
			affordable = append(affordable, id)
		}
	}
	stag := pick(rng, affordable)
	rest, _ := removeOne(cloneIDs(p.Hand), stag)
	return Payload{
		CardID:     stag,
		DiscardIDs: randomSubset(rng, rest, e.Rules().StagDiscardCost(cards.Value(stag))),
	}
}

func pick(rng *rand.Rand, ids []cards.ID) cards.ID {
	return ids[rng.IntN(len(ids))]
}

func randomSubset(rng *rand.Rand, ids []cards.ID, n int) []cards.ID {
	shuffled := cloneIDs(ids)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
