package strategy

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-orchestrator/models"
	"github.com/upb/llm-orchestrator/services"
	"github.com/upb/llm-orchestrator/services/ledger"
	"github.com/upb/llm-orchestrator/services/providers"
	"github.com/upb/llm-orchestrator/services/synthesis"
	"go.uber.org/zap"
)

// stubClient returns canned responses per model and records every call
type stubClient struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]stubOutcome
}

type stubOutcome struct {
	resp  *providers.QueryResponse
	err   error
	block bool
}

func (c *stubClient) Query(ctx context.Context, req *providers.QueryRequest) (*providers.QueryResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req.Model)
	c.mu.Unlock()

	out, ok := c.responses[req.Model]
	if !ok {
		return nil, providers.NewModelError(req.Model, models.FailureInvalidModel, "no stub response", nil)
	}
	if out.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return out.resp, out.err
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func succeedWith(content string, cost float64) stubOutcome {
	return stubOutcome{resp: &providers.QueryResponse{
		Content:   content,
		TokensIn:  100,
		TokensOut: 200,
		Cost:      cost,
		Latency:   5 * time.Millisecond,
	}}
}

func failWith(model string, kind models.FailureKind) stubOutcome {
	return stubOutcome{err: providers.NewModelError(model, kind, "stubbed failure", nil)}
}

func blockUntilDone() stubOutcome {
	return stubOutcome{block: true}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CouncilModels = []string{"model-a", "model-b", "model-c"}
	cfg.EscalationLadder = []string{"model-a", "model-b", "model-c"}
	cfg.CategoryModels = nil
	cfg.DefaultModel = "model-a"
	cfg.ParallelTimeout = time.Second
	cfg.SufficiencyMinLength = 40
	return cfg
}

func newTestEngine(t *testing.T, budget models.BudgetConfig, client *stubClient) (*Engine, *ledger.Service) {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	registry := providers.NewRegistry()
	for i, id := range []string{"model-a", "model-b", "model-c"} {
		info := &providers.ModelInfo{
			ID:                        id,
			Provider:                  "test",
			Tier:                      i + 1,
			ContextWindow:             100000,
			MaxOutputTokens:           1000,
			PricingPerPromptToken:     0.00001,
			PricingPerCompletionToken: 0.00001,
		}
		require.NoError(t, registry.Register(info, client))
	}

	ldg := ledger.NewService(budget, nil, logger)
	engine := NewEngine(registry, ldg, synthesis.NewService(logger), testConfig(), logger)
	return engine, ldg
}

var testTask = models.Task{Description: "Explain the tradeoffs in this design"}
var testCls = models.Classification{
	Complexity:          0.5,
	Category:            models.CategoryGeneric,
	RecommendedStrategy: models.StrategyEscalation,
}

func TestCouncil_PartialFailure(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": failWith("model-a", models.FailureRateLimited),
		"model-b": succeedWith("B recommends using event sourcing for the ledger", 0.02),
		"model-c": succeedWith("C recommends a simpler append-only table", 0.03),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategyCouncil, testTask, testCls)
	require.NoError(t, err)

	assert.Equal(t, models.StrategyCouncil, result.Strategy)
	assert.Len(t, result.Invocations, 3)
	assert.Equal(t, []string{"model-b", "model-c"}, result.ModelsUsed())
	assert.InDelta(t, 0.05, result.TotalCost, 1e-9)
	assert.Contains(t, result.Content, "## model-b")
	assert.Contains(t, result.Content, "## model-c")
	assert.NotContains(t, result.Content, "## model-a")

	// Only succeeded costs remain on the ledger
	assert.InDelta(t, 0.05, ldg.Total(), 1e-9)
}

func TestCouncil_SingleSurvivorPassesThrough(t *testing.T) {
	content := "B alone answered and its words must arrive untouched"
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": failWith("model-a", models.FailureTimeout),
		"model-b": succeedWith(content, 0.02),
		"model-c": failWith("model-c", models.FailureTransport),
	}}
	engine, _ := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategyCouncil, testTask, testCls)
	require.NoError(t, err)

	assert.Equal(t, content, result.Content)
	assert.Equal(t, []string{"model-b"}, result.ModelsUsed())
}

func TestCouncil_AllFail(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": failWith("model-a", models.FailureRateLimited),
		"model-b": failWith("model-b", models.FailureTimeout),
		"model-c": failWith("model-c", models.FailureTransport),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	_, err := engine.Execute(context.Background(), models.StrategyCouncil, testTask, testCls)
	require.Error(t, err)
	assert.True(t, services.IsAllModelsFailedError(err))

	// Every reservation was rolled back
	assert.InDelta(t, 0.0, ldg.Total(), 1e-9)
	assert.Equal(t, 3, client.callCount())
}

func TestCouncil_BudgetRefusalIssuesNoCalls(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{PerRequestLimit: 0.0000001}, client)

	_, err := engine.Execute(context.Background(), models.StrategyCouncil, testTask, testCls)
	require.Error(t, err)
	assert.True(t, services.IsBudgetError(err))
	assert.Equal(t, 0, client.callCount())
	assert.InDelta(t, 0.0, ldg.Total(), 1e-9)
}

func TestCouncil_DailyBudgetRefusalRollsBackSiblings(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{}}
	// Two reservations fit, the third does not; the whole council aborts
	// before any call.
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 0.025}, client)

	_, err := engine.Execute(context.Background(), models.StrategyCouncil, testTask, testCls)
	require.Error(t, err)
	assert.True(t, services.IsBudgetError(err))
	assert.Equal(t, 0, client.callCount())
	assert.InDelta(t, 0.0, ldg.Total(), 1e-9)
}

func TestCouncil_CancellationReleasesReservations(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": blockUntilDone(),
		"model-b": blockUntilDone(),
		"model-c": blockUntilDone(),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Cancel only once every member is in flight
		for client.callCount() < 3 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := engine.Execute(ctx, models.StrategyCouncil, testTask, testCls)
	require.Error(t, err)
	assert.True(t, services.IsAllModelsFailedError(err))

	// Cancellation reached all in-flight calls and every speculative
	// reservation was rolled back.
	assert.Equal(t, 3, client.callCount())
	assert.InDelta(t, 0.0, ldg.Total(), 1e-9)
}

func TestEscalation_FirstSufficientStops(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": succeedWith("A thorough, confident and complete answer to the question", 0.01),
	}}
	engine, _ := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategyEscalation, testTask, testCls)
	require.NoError(t, err)

	assert.Len(t, result.Invocations, 1)
	assert.Equal(t, []string{"model-a"}, result.ModelsUsed())
	assert.Equal(t, 1, client.callCount())
	assert.InDelta(t, 0.01, result.TotalCost, 1e-9)
}

func TestEscalation_InsufficientClimbs(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": succeedWith("too short", 0.01),
		"model-b": succeedWith("A longer and fully developed answer that settles the question for good", 0.02),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategyEscalation, testTask, testCls)
	require.NoError(t, err)

	assert.Len(t, result.Invocations, 2)
	assert.Equal(t, "A longer and fully developed answer that settles the question for good", result.Content)
	// Both rungs cost money
	assert.InDelta(t, 0.03, result.TotalCost, 1e-9)
	assert.InDelta(t, 0.03, ldg.Total(), 1e-9)
}

func TestEscalation_HedgingClimbs(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": succeedWith("I'm not sure about this, it depends on factors outside the provided context", 0.01),
		"model-b": succeedWith("The answer is concrete and decisive, with clear reasoning behind it", 0.02),
	}}
	engine, _ := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategyEscalation, testTask, testCls)
	require.NoError(t, err)
	assert.Equal(t, []string{"model-a", "model-b"}, result.ModelsUsed())
	assert.Equal(t, "The answer is concrete and decisive, with clear reasoning behind it", result.Content)
}

func TestEscalation_FailureFallsThrough(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": failWith("model-a", models.FailureRateLimited),
		"model-b": succeedWith("A complete answer produced after the first rung fell over", 0.02),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategyEscalation, testTask, testCls)
	require.NoError(t, err)

	assert.Equal(t, []string{"model-b"}, result.ModelsUsed())
	assert.InDelta(t, 0.02, result.TotalCost, 1e-9)
	assert.InDelta(t, 0.02, ldg.Total(), 1e-9)
}

func TestEscalation_AllFail(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": failWith("model-a", models.FailureTimeout),
		"model-b": failWith("model-b", models.FailureTimeout),
		"model-c": failWith("model-c", models.FailureTimeout),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	_, err := engine.Execute(context.Background(), models.StrategyEscalation, testTask, testCls)
	require.Error(t, err)
	assert.True(t, services.IsAllModelsFailedError(err))
	assert.InDelta(t, 0.0, ldg.Total(), 1e-9)
}

func TestEscalation_ExhaustedLadderKeepsLastSuccess(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": succeedWith("short", 0.01),
		"model-b": succeedWith("brief", 0.02),
		"model-c": succeedWith("still terse", 0.03),
	}}
	engine, _ := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategyEscalation, testTask, testCls)
	require.NoError(t, err)

	// No rung was sufficient; the last success still wins
	assert.Equal(t, "still terse", result.Content)
	assert.Len(t, result.Invocations, 3)
	assert.InDelta(t, 0.06, result.TotalCost, 1e-9)
}

func TestSingle_Success(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": succeedWith("the single answer", 0.01),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	result, err := engine.Execute(context.Background(), models.StrategySingle, testTask, testCls)
	require.NoError(t, err)

	assert.Equal(t, "the single answer", result.Content)
	assert.Equal(t, []string{"model-a"}, result.ModelsUsed())
	assert.Equal(t, 1, client.callCount())
	assert.InDelta(t, 0.01, ldg.Total(), 1e-9)
}

func TestSingle_Failure(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{
		"model-a": failWith("model-a", models.FailureTransport),
	}}
	engine, ldg := newTestEngine(t, models.BudgetConfig{DailyLimit: 10}, client)

	_, err := engine.Execute(context.Background(), models.StrategySingle, testTask, testCls)
	require.Error(t, err)
	assert.True(t, services.IsAllModelsFailedError(err))
	assert.InDelta(t, 0.0, ldg.Total(), 1e-9)
}

func TestExecute_UnknownStrategy(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{}}
	engine, _ := newTestEngine(t, models.BudgetConfig{}, client)

	_, err := engine.Execute(context.Background(), models.Strategy("parliament"), testTask, testCls)
	require.Error(t, err)
	assert.True(t, services.IsInvalidStrategyError(err))
}

func TestIsSufficient(t *testing.T) {
	client := &stubClient{responses: map[string]stubOutcome{}}
	engine, _ := newTestEngine(t, models.BudgetConfig{}, client)

	long := strings.Repeat("a confident sentence. ", 10)

	t.Run("short content insufficient", func(t *testing.T) {
		assert.False(t, engine.isSufficient(testTask, "nope"))
	})

	t.Run("hedged content insufficient", func(t *testing.T) {
		assert.False(t, engine.isSufficient(testTask, long+" but I'm not sure."))
	})

	t.Run("implementation task needs a code block", func(t *testing.T) {
		task := models.Task{Description: "Implement a function to parse the header"}
		assert.False(t, engine.isSufficient(task, long))
		assert.True(t, engine.isSufficient(task, long+"\n```go\nfunc parse() {}\n```"))
	})

	t.Run("long confident prose sufficient", func(t *testing.T) {
		assert.True(t, engine.isSufficient(testTask, long))
	})
}
