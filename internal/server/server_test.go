package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stagcourt/stag-server/internal/config"
	"github.com/stagcourt/stag-server/internal/game"
	"github.com/stagcourt/stag-server/internal/game/rules"
	"github.com/stagcourt/stag-server/internal/repository"
	"github.com/stagcourt/stag-server/internal/table"
)

type testStack struct {
	tables    *table.Service
	validator *PayloadValidator
	hub       *Hub
	api       *API
}

func counter(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine := game.NewEngine(rules.Default(), logger, game.WithShuffler(rand.New(rand.NewPCG(3, 3)).Shuffle))
	tables := table.NewService(repository.NewMemoryStore(), engine, logger,
		table.WithPlayerIDs(counter("p")),
		table.WithCodeGenerator(counter("GAME")),
	)
	validator, err := NewPayloadValidator()
	require.NoError(t, err)
	hub := NewHub(tables, config.WebSocketConfig{}, logger)
	tables.SetNotifier(hub)
	t.Cleanup(hub.Close)
	return &testStack{
		tables:    tables,
		validator: validator,
		hub:       hub,
		api:       NewAPI(tables, validator, hub, logger),
	}
}

// do sends a request to the API and decodes the JSON response body.
func (s *testStack) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.api.Routes().ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}
