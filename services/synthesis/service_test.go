package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/upb/llm-orchestrator/models"
	"go.uber.org/zap"
)

func newTestSynthesizer() *Service {
	logger, _ := zap.NewDevelopment()
	return NewService(logger)
}

func TestSynthesize_Empty(t *testing.T) {
	svc := newTestSynthesizer()
	assert.Equal(t, "", svc.Synthesize(nil))
}

func TestSynthesize_SingleSuccessUnmodified(t *testing.T) {
	svc := newTestSynthesizer()
	content := "exactly this text, no headers, no summary"

	out := svc.Synthesize([]models.Invocation{
		{Model: "model-a", Content: content},
		{Model: "model-b", Failure: models.FailureTimeout},
	})
	assert.Equal(t, content, out)
}

func TestSynthesize_MultipleSuccessesLabeled(t *testing.T) {
	svc := newTestSynthesizer()

	out := svc.Synthesize([]models.Invocation{
		{Model: "model-a", Content: "A-content"},
		{Model: "model-b", Content: "B-content"},
	})

	assert.Contains(t, out, "## model-a")
	assert.Contains(t, out, "A-content")
	assert.Contains(t, out, "## model-b")
	assert.Contains(t, out, "B-content")
	assert.Contains(t, out, "## Consensus")
}

func TestSynthesize_SkipsFailedInvocations(t *testing.T) {
	svc := newTestSynthesizer()

	out := svc.Synthesize([]models.Invocation{
		{Model: "model-a", Content: "A-content"},
		{Model: "model-b", Failure: models.FailureRateLimited, FailureMessage: "rate limited"},
		{Model: "model-c", Content: "C-content"},
	})

	assert.NotContains(t, out, "model-b")
	assert.NotContains(t, out, "rate limited")
}

func TestSynthesize_ConsensusCountsOverlap(t *testing.T) {
	svc := newTestSynthesizer()

	out := svc.Synthesize([]models.Invocation{
		{Model: "model-a", Content: "- Use connection pooling\n- Add an index on user_id"},
		{Model: "model-b", Content: "- Use connection pooling\n- Cache hot rows in Redis"},
	})

	assert.Contains(t, out, "Overlapping recommendations: 1")
	assert.Contains(t, out, "Divergent points: 2")
	assert.Contains(t, out, "use connection pooling")
}

func TestSynthesize_Deterministic(t *testing.T) {
	svc := newTestSynthesizer()

	invocations := []models.Invocation{
		{Model: "model-a", Content: "You should prefer approach one.\n- reason alpha"},
		{Model: "model-b", Content: "I recommend approach two.\n- reason beta"},
	}
	first := svc.Synthesize(invocations)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, svc.Synthesize(invocations))
	}
}

func TestExtractClaims_Normalization(t *testing.T) {
	claims := extractClaims("- Use Connection Pooling.\n* use   connection pooling\nSome filler line.")
	// Case and whitespace normalize to a single claim
	assert.Equal(t, []string{"use connection pooling"}, claims)
}
