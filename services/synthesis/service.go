package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/upb/llm-orchestrator/models"
	"go.uber.org/zap"
)

// salientLine matches bullet points and numbered items, the lines most
// likely to carry a model's concrete recommendations.
var salientLine = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)

// recommendationMarkers pull in prose lines that state a recommendation
// without bullet formatting.
var recommendationMarkers = []string{"recommend", "should ", "prefer ", "suggest"}

// maxListedClaims bounds how many shared/distinct claims the consensus
// section enumerates.
const maxListedClaims = 5

// Service merges the results of multiple invocations into one coherent
// answer with attribution. Synthesis is local and deterministic: no model
// call is involved in the merge.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new synthesizer
func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Synthesize merges the successful invocations. A single success passes
// through unchanged, with no synthesis artifacts; multiple successes
// produce labeled per-model sections plus a consensus summary.
func (s *Service) Synthesize(invocations []models.Invocation) string {
	succeeded := make([]models.Invocation, 0, len(invocations))
	for _, inv := range invocations {
		if inv.Succeeded() {
			succeeded = append(succeeded, inv)
		}
	}

	switch len(succeeded) {
	case 0:
		return ""
	case 1:
		return succeeded[0].Content
	}

	s.logger.Debug("merging council responses", zap.Int("sources", len(succeeded)))

	var b strings.Builder
	for i, inv := range succeeded {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", inv.Model, strings.TrimSpace(inv.Content))
	}

	b.WriteString("\n\n")
	b.WriteString(s.consensusSummary(succeeded))

	return b.String()
}

// consensusSummary compares salient claims across responses and reports
// how much the models agree.
func (s *Service) consensusSummary(succeeded []models.Invocation) string {
	// claim -> models that made it, preserving first-appearance order
	order := make([]string, 0)
	sources := make(map[string]map[string]bool)

	for _, inv := range succeeded {
		for _, claim := range extractClaims(inv.Content) {
			if _, seen := sources[claim]; !seen {
				sources[claim] = make(map[string]bool)
				order = append(order, claim)
			}
			sources[claim][inv.Model] = true
		}
	}

	shared := make([]string, 0)
	distinct := make([]string, 0)
	for _, claim := range order {
		if len(sources[claim]) > 1 {
			shared = append(shared, claim)
		} else {
			distinct = append(distinct, claim)
		}
	}

	var b strings.Builder
	b.WriteString("## Consensus\n\n")
	fmt.Fprintf(&b, "%d of %d models responded. Overlapping recommendations: %d. Divergent points: %d.\n",
		len(succeeded), len(succeeded), len(shared), len(distinct))

	if len(shared) > 0 {
		b.WriteString("\nAgreed across models:\n")
		for i, claim := range shared {
			if i == maxListedClaims {
				break
			}
			fmt.Fprintf(&b, "- %s\n", claim)
		}
	}
	if len(distinct) > 0 {
		b.WriteString("\nRaised by a single model:\n")
		for i, claim := range distinct {
			if i == maxListedClaims {
				break
			}
			fmt.Fprintf(&b, "- %s\n", claim)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// extractClaims pulls the salient recommendation lines out of a response,
// normalized for comparison.
func extractClaims(content string) []string {
	claims := make([]string, 0)
	seen := make(map[string]bool)

	for _, line := range strings.Split(content, "\n") {
		var claim string
		if m := salientLine.FindStringSubmatch(line); m != nil {
			claim = m[1]
		} else if hasRecommendationMarker(line) {
			claim = line
		} else {
			continue
		}

		claim = normalizeClaim(claim)
		if claim == "" || seen[claim] {
			continue
		}
		seen[claim] = true
		claims = append(claims, claim)
	}
	return claims
}

func hasRecommendationMarker(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range recommendationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// normalizeClaim lowercases and strips formatting so the same
// recommendation phrased identically by two models compares equal.
func normalizeClaim(claim string) string {
	claim = strings.ToLower(strings.TrimSpace(claim))
	claim = strings.Trim(claim, ".!:;")
	return strings.Join(strings.Fields(claim), " ")
}
