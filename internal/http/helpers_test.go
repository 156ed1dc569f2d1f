package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	api "github.com/JM-Mushraf/TownSquare-sub000/internal/http"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/voting"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/voting/votingtest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type recordingPub struct {
	mu     sync.Mutex
	events []any
	keys   []string
}

func (p *recordingPub) Publish(_ context.Context, _, key string, event any, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPub) Close() error { return nil }

func (p *recordingPub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type testEnv struct {
	T      *testing.T
	Store  *votingtest.Store
	Svc    *voting.Service
	Pub    *recordingPub
	Router *gin.Engine
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, opt api.RouterOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := votingtest.NewStore()
	svc := voting.NewService(st, st, votingtest.NewMemoryCache(), domain.GracePeriod)
	svc.Now = func() time.Time { return fixedNow }
	pub := &recordingPub{}

	h := api.NewHandler(svc, pub, "townsquare.events")
	h.Checks["mongo"] = pingFunc(func(context.Context) error { return nil })
	return &testEnv{T: t, Store: st, Svc: svc, Pub: pub, Router: api.NewRouter(h, opt)}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func (e *testEnv) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) decode(w *httptest.ResponseRecorder, v any) {
	e.T.Helper()
	require.NoError(e.T, json.Unmarshal(w.Body.Bytes(), v), "body=%s", w.Body.String())
}

func (e *testEnv) seedPoll(options ...string) *domain.Post {
	e.T.Helper()
	in := make([]domain.OptionInput, len(options))
	for i, o := range options {
		in[i] = domain.OptionInput{Text: o}
	}
	owner := e.Store.Seed("owner-" + options[0])[0]
	p, err := e.Svc.CreatePost(context.Background(), domain.NewPost{
		Type: domain.PostPoll, Title: "Seasons", CreatedBy: owner.Hex(),
		Poll: &domain.NewPoll{Question: "Best season?", Deadline: "2026-05-10", Options: in},
	})
	require.NoError(e.T, err)
	return p
}
