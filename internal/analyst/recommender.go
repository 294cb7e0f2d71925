// Package analyst is the job-status backend the sequencer polls: it accepts
// analysis jobs, produces a swap recommendation asynchronously and reports
// job status.
package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/agentdesk/agentdesk/pkg/jobs"
	"github.com/agentdesk/agentdesk/pkg/types"
)

// Recommender turns a portfolio into a swap recommendation
type Recommender interface {
	Name() string
	Recommend(ctx context.Context, req *types.JobRequest) (*types.Recommendation, error)
}

const systemPrompt = `You are a portfolio risk analyst for a Cardano trading agent.
Given the user's holdings, risk level and trading pair, recommend exactly one action on the base token.
Respond with a single JSON object and nothing else:
{"command": "buy" | "sell" | "hold", "quantity": <number of base tokens, 0 for hold>, "summary": "<one sentence>", "risk_reduction": <expected risk reduction in percent>}
Never recommend selling more than the user holds.`

func userPrompt(req *types.JobRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pair: %s/%s\n", req.Pair.Base, req.Pair.Quote)
	fmt.Fprintf(&b, "Risk level: %s\n", orDefault(req.RiskLevel, "balanced"))
	b.WriteString("Holdings:\n")
	if len(req.Holdings) == 0 {
		b.WriteString("- none reported\n")
	}
	for _, h := range req.Holdings {
		fmt.Fprintf(&b, "- %s: %g\n", h.Symbol, h.Balance)
	}
	if req.Preferences != "" {
		fmt.Fprintf(&b, "Preferences: %s\n", req.Preferences)
	}
	return b.String()
}

// parseRecommendation extracts the first JSON object from model output
func parseRecommendation(text string) (*types.Recommendation, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	raw := text[start : end+1]
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}
	return jobs.DecodeResult(raw)
}

// capToHoldings limits a sell to the reported base balance
func capToHoldings(rec *types.Recommendation, req *types.JobRequest) *types.Recommendation {
	if rec.Command != types.CommandSell {
		return rec
	}
	bal, ok := holding(req, req.Pair.Base)
	if ok && rec.Quantity > bal {
		rec.Quantity = math.Floor(bal)
		if rec.Quantity <= 0 {
			rec.Command = types.CommandHold
			rec.Quantity = 0
		}
	}
	return rec
}

func holding(req *types.JobRequest, symbol string) (float64, bool) {
	for _, h := range req.Holdings {
		if strings.EqualFold(h.Symbol, symbol) {
			return h.Balance, true
		}
	}
	return 0, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// RulesRecommender sizes a rebalance from the risk level alone
type RulesRecommender struct{}

func (RulesRecommender) Name() string { return "rules" }

// Share of the base position moved into the quote token per risk level
var sellShare = map[string]float64{
	"conservative": 0.30,
	"balanced":     0.10,
}

// Share of the quote position moved into the base token when risky
const riskyBuyShare = 0.20

func (RulesRecommender) Recommend(ctx context.Context, req *types.JobRequest) (*types.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, quote := req.Pair.Base, req.Pair.Quote
	risk := strings.ToLower(orDefault(req.RiskLevel, "balanced"))

	if share, ok := sellShare[risk]; ok {
		bal, _ := holding(req, base)
		qty := math.Floor(bal * share)
		if qty <= 0 {
			return hold(base), nil
		}
		return &types.Recommendation{
			Command:       types.CommandSell,
			Quantity:      qty,
			Summary:       fmt.Sprintf("Convert %s to %s to reduce volatility", base, quote),
			RiskReduction: math.Round(share * 50),
		}, nil
	}

	if risk == "risky" {
		bal, _ := holding(req, quote)
		qty := math.Floor(bal * riskyBuyShare)
		if qty <= 0 {
			return hold(base), nil
		}
		return &types.Recommendation{
			Command:  types.CommandBuy,
			Quantity: qty,
			Summary:  fmt.Sprintf("Rotate idle %s into %s for upside exposure", quote, base),
		}, nil
	}

	return nil, fmt.Errorf("unknown risk level %q", req.RiskLevel)
}

func hold(base string) *types.Recommendation {
	return &types.Recommendation{
		Command: types.CommandHold,
		Summary: fmt.Sprintf("Keep the current %s allocation", base),
	}
}
