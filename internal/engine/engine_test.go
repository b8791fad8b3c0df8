package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/danielpatrickdp/conflict-twin/internal/cache"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/logging"
	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
	"github.com/danielpatrickdp/conflict-twin/internal/scoring"
	"github.com/danielpatrickdp/conflict-twin/internal/simulate"
	"github.com/danielpatrickdp/conflict-twin/internal/store"
)

// #region helpers

const angryText = "You always ignore me!"

func testOracle() *oracle.Static {
	o := oracle.NewStatic(&oracle.Reading{
		Sentiment: dialogue.NewSentiment(dialogue.LabelPositive, 0.7),
		Emotions:  dialogue.Emotions{{Name: "joy", Score: 0.5}, {Name: "anger", Score: 0.1}},
		Features:  dialogue.LinguisticFeatures{ICount: 1, SentenceCount: 1, WordCount: 5},
	})
	o.Set(angryText, oracle.Reading{
		Sentiment: dialogue.NewSentiment(dialogue.LabelNegative, 0.9),
		Emotions:  dialogue.Emotions{{Name: "anger", Score: 0.8}, {Name: "joy", Score: 0.05}},
		Features:  dialogue.LinguisticFeatures{YouCount: 1, SentenceCount: 1, WordCount: 4},
	})
	return o
}

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fixture struct {
	engine *Engine
	oracle *oracle.Static
	store  *store.Store
	redis  *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	o := testOracle()
	s := tempStore(t)
	e := New(Deps{
		Oracle:    o,
		Templates: simulate.NewTemplateGenerator(7),
		Store:     s,
		Cache:     cache.New(client, cache.Config{}),
	})
	return fixture{engine: e, oracle: o, store: s, redis: mr}
}

func seedSession(t *testing.T, f fixture, user string) string {
	t.Helper()
	sess, err := f.engine.CreateSession(user, "kitchen")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_, err = f.engine.AddTurns(context.Background(), sess.ID, []scoring.Utterance{
		{Speaker: dialogue.SpeakerSelf, Text: "Can we talk about the dishes?"},
		{Speaker: dialogue.SpeakerCounterpart, Text: angryText},
		{Speaker: dialogue.SpeakerSelf, Text: angryText},
	})
	if err != nil {
		t.Fatalf("AddTurns: %v", err)
	}
	return sess.ID
}

// #endregion helpers

// #region stateless-tests

func TestStateless_NoStoreNeeded(t *testing.T) {
	e := New(Deps{Oracle: testOracle(), Templates: simulate.NewTemplateGenerator(1)})
	ctx := context.Background()

	turn, err := e.ScoreTurn(ctx, angryText, dialogue.SpeakerSelf)
	if err != nil {
		t.Fatalf("ScoreTurn: %v", err)
	}
	if !dialogue.HasBias(turn.BiasTags, dialogue.BiasOvergeneralization) {
		t.Errorf("expected overgeneralization tag, got %+v", turn.BiasTags)
	}

	a := e.AnalyzeConversation([]dialogue.DialogueTurn{turn})
	if a.Trend != "stable" {
		t.Errorf("single turn trend = %q, want stable", a.Trend)
	}

	m, err := e.BuildOpponentModel(ctx, []dialogue.DialogueTurn{turn})
	if err != nil {
		t.Fatalf("BuildOpponentModel: %v", err)
	}
	res, err := e.SimulateResponse(ctx, "I feel unheard.", m, []dialogue.DialogueTurn{turn})
	if err != nil {
		t.Fatalf("SimulateResponse: %v", err)
	}
	if res.SimulatedResponse == "" || res.Generator != "template" {
		t.Errorf("unexpected result %+v", res)
	}

	if _, err := e.CreateSession("alice", ""); !errors.Is(err, ErrNoStore) {
		t.Errorf("CreateSession without store: want ErrNoStore, got %v", err)
	}
	if _, err := e.AnalyzeSession(ctx, "x"); !errors.Is(err, ErrNoStore) {
		t.Errorf("AnalyzeSession without store: want ErrNoStore, got %v", err)
	}
}

// notServingConn answers health checks with NOT_SERVING and counts every
// other call.
type notServingConn struct{ calls int }

func (c *notServingConn) Invoke(_ context.Context, method string, _, reply any, _ ...grpc.CallOption) error {
	if method == "/grpc.health.v1.Health/Check" {
		reply.(*healthpb.HealthCheckResponse).Status = healthpb.HealthCheckResponse_NOT_SERVING
		return nil
	}
	c.calls++
	return status.Error(codes.Internal, "should not be reached")
}

func (c *notServingConn) NewStream(_ context.Context, _ *grpc.StreamDesc, method string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, status.Error(codes.Unimplemented, method)
}

func TestScoreTurn_OracleNotServing(t *testing.T) {
	conn := &notServingConn{}
	o := oracle.NewClientWithConn(conn, 0, nil).RequireReady()
	e := New(Deps{Oracle: o})

	_, err := e.ScoreTurn(context.Background(), angryText, dialogue.SpeakerSelf)
	if !oracle.IsUnavailable(err) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if conn.calls != 0 {
		t.Errorf("expected no NLP calls before readiness, got %d", conn.calls)
	}
}

func TestNew_DefaultTemplates(t *testing.T) {
	e := New(Deps{Oracle: testOracle()})
	res, err := e.SimulateResponse(context.Background(), "I feel unheard.", opponent.Default(), nil)
	if err != nil {
		t.Fatalf("SimulateResponse: %v", err)
	}
	if res.Generator != "template" || res.SimulatedResponse == "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestQuickScore_Blank(t *testing.T) {
	f := newFixture(t)
	q, err := f.engine.QuickScore(context.Background(), "   ")
	if err != nil {
		t.Fatalf("QuickScore: %v", err)
	}
	if q.WarningLevel != scoring.WarningSafe || f.oracle.Calls() != 0 {
		t.Errorf("blank draft: level %q calls %d", q.WarningLevel, f.oracle.Calls())
	}
}

func TestCounterpartTurns(t *testing.T) {
	turns := []dialogue.DialogueTurn{
		{Speaker: dialogue.SpeakerSelf, Text: "a"},
		{Speaker: dialogue.SpeakerCounterpart, Text: "b"},
		{Speaker: dialogue.SpeakerCounterpart, Text: "c"},
	}
	got := CounterpartTurns(turns)
	if len(got) != 2 || got[0].Text != "b" || got[1].Text != "c" {
		t.Errorf("CounterpartTurns = %+v", got)
	}
	if got := CounterpartTurns(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

// #endregion stateless-tests

// #region session-tests

func TestAddTurn_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AddTurn(context.Background(), "missing", "hello", dialogue.SpeakerSelf)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if f.oracle.Calls() != 0 {
		t.Errorf("oracle called for unknown session")
	}
}

func TestAddTurns_Cancelled(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.engine.CreateSession("alice", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := f.engine.AddTurns(ctx, sess.ID, []scoring.Utterance{{Speaker: dialogue.SpeakerSelf, Text: "hi"}})
	if !errors.Is(err, context.Canceled) || len(got) != 0 {
		t.Fatalf("want canceled with no turns, got %d turns, err %v", len(got), err)
	}
}

func TestAnalyzeSession_PersistsAndAudits(t *testing.T) {
	f := newFixture(t)
	id := seedSession(t, f, "alice")

	rec, err := f.engine.AnalyzeSession(context.Background(), id)
	if err != nil {
		t.Fatalf("AnalyzeSession: %v", err)
	}
	if rec.TurnCount != 3 {
		t.Errorf("TurnCount = %d, want 3", rec.TurnCount)
	}

	latest, err := f.engine.LatestAnalysis(id)
	if err != nil {
		t.Fatalf("LatestAnalysis: %v", err)
	}
	if diff := cmp.Diff(rec.Analysis, latest.Analysis); diff != "" {
		t.Errorf("persisted analysis mismatch (-want +got):\n%s", diff)
	}

	entries, err := logging.ListDecisions(f.store.DB(), id, 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != logging.KindAnalysis {
		t.Fatalf("audit entries = %+v", entries)
	}
	if entries[0].Decision != string(rec.Analysis.Trend) {
		t.Errorf("audit decision %q, trend %q", entries[0].Decision, rec.Analysis.Trend)
	}
}

func TestAnalyzeSessions_Parallel(t *testing.T) {
	f := newFixture(t)
	ids := []string{seedSession(t, f, "alice"), seedSession(t, f, "bob"), seedSession(t, f, "carol")}

	got, err := f.engine.AnalyzeSessions(context.Background(), ids)
	if err != nil {
		t.Fatalf("AnalyzeSessions: %v", err)
	}
	for i, r := range got {
		if r.SessionID != ids[i] || r.Analysis.SessionID != ids[i] {
			t.Errorf("result %d out of order: %+v", i, r)
		}
	}

	if _, err := f.engine.AnalyzeSessions(context.Background(), append(ids, "missing")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("want ErrNotFound for missing session, got %v", err)
	}
}

func TestPipeline(t *testing.T) {
	f := newFixture(t)
	empty, _ := f.engine.CreateSession("alice", "")
	if _, err := f.engine.Pipeline(empty.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("empty session: want ErrNotFound, got %v", err)
	}

	id := seedSession(t, f, "alice")
	steps, err := f.engine.Pipeline(id)
	if err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
}

// #endregion session-tests

// #region opponent-tests

func TestOpponentModel_CacheLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := seedSession(t, f, "alice")
	key := "ctwin:opponent:" + id

	m, err := f.engine.OpponentModel(ctx, id)
	if err != nil {
		t.Fatalf("OpponentModel: %v", err)
	}
	if !f.redis.Exists(key) {
		t.Fatalf("model not cached under %s", key)
	}
	stored, err := f.store.GetOpponentModel(id)
	if err != nil {
		t.Fatalf("GetOpponentModel: %v", err)
	}
	if diff := cmp.Diff(m, stored); diff != "" {
		t.Errorf("stored model mismatch (-want +got):\n%s", diff)
	}

	calls := f.oracle.Calls()
	again, err := f.engine.OpponentModel(ctx, id)
	if err != nil {
		t.Fatalf("OpponentModel (cached): %v", err)
	}
	if f.oracle.Calls() != calls {
		t.Errorf("cached lookup hit the oracle")
	}
	if diff := cmp.Diff(m, again); diff != "" {
		t.Errorf("cached model mismatch (-want +got):\n%s", diff)
	}

	if _, err := f.engine.AddTurn(ctx, id, "Whatever.", dialogue.SpeakerCounterpart); err != nil {
		t.Fatalf("AddTurn: %v", err)
	}
	if f.redis.Exists(key) {
		t.Errorf("cache entry survived a new turn")
	}
	if _, err := f.store.GetOpponentModel(id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("stored model survived a new turn: %v", err)
	}
}

func TestOpponentModel_CacheDown(t *testing.T) {
	f := newFixture(t)
	id := seedSession(t, f, "alice")
	f.redis.Close()

	if _, err := f.engine.OpponentModel(context.Background(), id); err != nil {
		t.Fatalf("cache outage should not fail modelling: %v", err)
	}
}

func TestSimulate_AuditsModelAndExchange(t *testing.T) {
	f := newFixture(t)
	id := seedSession(t, f, "alice")

	res, err := f.engine.Simulate(context.Background(), id, "I feel frustrated when plans change.")
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.SimulatedResponse == "" {
		t.Fatal("empty simulated response")
	}

	entries, err := logging.ListDecisions(f.store.DB(), id, 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	kinds := map[string]int{}
	for _, e := range entries {
		kinds[e.Kind]++
	}
	if kinds[logging.KindOpponentModel] != 1 || kinds[logging.KindSimulation] != 1 {
		t.Errorf("audit kinds = %v", kinds)
	}
	if entries[0].Kind != logging.KindSimulation || entries[0].Decision != res.Recommendation {
		t.Errorf("newest entry = %+v", entries[0])
	}

	if _, err := f.engine.Simulate(context.Background(), id, "  "); err == nil {
		t.Error("expected error for empty draft")
	}
}

// #endregion opponent-tests

// #region profile-tests

func TestUserDashboard(t *testing.T) {
	f := newFixture(t)
	seedSession(t, f, "alice")
	seedSession(t, f, "alice")
	seedSession(t, f, "bob")

	d, err := f.engine.UserDashboard("alice")
	if err != nil {
		t.Fatalf("UserDashboard: %v", err)
	}
	if d.Profile.UserID != "alice" || len(d.Profile.ConflictHistory) != 2 {
		t.Errorf("profile = %+v", d.Profile)
	}
}

// #endregion profile-tests
