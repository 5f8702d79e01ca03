package cards

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/stagcourt/stag-server/internal/game/rules"
)

// Type identifies the kind of a card.
type Type string

const (
	TypeStag         Type = "stag"
	TypeHunt         Type = "hunt"
	TypeHealing      Type = "healing"
	TypeMagi         Type = "magi"
	TypeTithe        Type = "tithe"
	TypeKingsCommand Type = "kingscommand"
)

var typeNames = map[Type]string{
	TypeStag:         "Stag",
	TypeHunt:         "Hunt",
	TypeHealing:      "Healing",
	TypeMagi:         "Magi",
	TypeTithe:        "Tithe",
	TypeKingsCommand: "King's Command",
}

func (t Type) String() string {
	return string(t)
}

// Valid reports whether t is one of the six card types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ID is the opaque token of one physical card: "<type>-<value>-<copy>".
type ID = string

// Shuffler permutes n elements through swap, matching rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// DefaultShuffler shuffles with the process-wide random source.
func DefaultShuffler(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// New builds a card token.
func New(t Type, value, copyIndex int) ID {
	return fmt.Sprintf("%s-%d-%d", t, value, copyIndex)
}

// Parse splits a token into its type and value.
func Parse(id ID) (Type, int, error) {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("malformed card id %q", id)
	}
	t := Type(parts[0])
	if !t.Valid() {
		return "", 0, fmt.Errorf("unknown card type in %q", id)
	}
	v, err := strconv.Atoi(parts[1])
	if err != nil || v <= 0 {
		return "", 0, fmt.Errorf("malformed card value in %q", id)
	}
	return t, v, nil
}

// TypeOf returns the card type, or "" for a malformed token.
func TypeOf(id ID) Type {
	t, _, err := Parse(id)
	if err != nil {
		return ""
	}
	return t
}

// Value returns the card value, or 0 for a malformed token.
func Value(id ID) int {
	_, v, err := Parse(id)
	if err != nil {
		return 0
	}
	return v
}

// Is reports whether id is a well-formed card of type t.
func Is(id ID, t Type) bool {
	return TypeOf(id) == t
}

// DisplayName renders a card for logs and clients.
func DisplayName(id ID) string {
	t, v, err := Parse(id)
	if err != nil {
		return id
	}
	switch t {
	case TypeStag, TypeHunt:
		return fmt.Sprintf("%s %d", typeNames[t], v)
	default:
		return typeNames[t]
	}
}

// DisplayNames renders a list of cards joined by commas.
func DisplayNames(ids []ID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = DisplayName(id)
	}
	return strings.Join(names, ", ")
}

// NewDeck builds the full composition and shuffles it.
func NewDeck(composition []rules.CardSpec, shuffle Shuffler) []ID {
	deck := make([]ID, 0, 64)
	for _, spec := range composition {
		for c := 1; c <= spec.Copies; c++ {
			deck = append(deck, New(Type(spec.Type), spec.Value, c))
		}
	}
	Shuffle(deck, shuffle)
	return deck
}

// Shuffle permutes cards in place.
func Shuffle(deck []ID, shuffle Shuffler) {
	if shuffle == nil {
		shuffle = DefaultShuffler
	}
	shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// Count returns how many cards of type t appear in ids.
func Count(ids []ID, t Type) int {
	n := 0
	for _, id := range ids {
		if TypeOf(id) == t {
			n++
		}
	}
	return n
}

// SumValues adds up the values of every card of type t in ids.
func SumValues(ids []ID, t Type) int {
	sum := 0
	for _, id := range ids {
		if tt, v, err := Parse(id); err == nil && tt == t {
			sum += v
		}
	}
	return sum
}
