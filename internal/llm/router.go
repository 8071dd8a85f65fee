package llm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/errs"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
)

// CostDistribution reports accumulated spend per tier.
type CostDistribution struct {
	ByTier map[Tier]float64
	Total  float64
}

// Router is the Tier Router (C2): it owns the operation→tier mapping, the
// provider client bound to each tier, a process-wide concurrency cap per
// spec.md §4.2, and cost accounting. Grounded on the teacher's
// internal/core/api_scheduler.go concept of bounding concurrent API calls,
// generalized from one raw channel-based global scheduler to a single
// golang.org/x/sync/semaphore.Weighted shared by all tiers, and on
// internal/perception/client_tool_helpers.go's provider-agnostic tool-call
// shape. The Router issues no retries itself; the Feedback Router decides
// whether a failed call gets repeated.
type Router struct {
	clients map[Tier]ProviderClient
	pricing map[Tier]config.Pricing
	models  map[Tier]string
	sem     *semaphore.Weighted

	operationTiers map[Operation]Tier

	mu   sync.Mutex
	cost map[Tier]float64
}

// NewRouter builds a Router bound to cfg's tier->provider bindings. The
// caller supplies already-constructed provider clients (so tests can inject
// fakes); production wiring happens in cmd/forge.
func NewRouter(cfg config.Config, clients map[Tier]ProviderClient) (*Router, error) {
	for _, tier := range []Tier{TierOpus, TierSonnet, TierHaikuClass} {
		if _, ok := clients[tier]; !ok {
			return nil, fmt.Errorf("llm: no provider client bound for tier %q", tier)
		}
	}

	pricing := make(map[Tier]config.Pricing, len(cfg.Tiers))
	models := make(map[Tier]string, len(cfg.Tiers))
	for tier, binding := range cfg.Tiers {
		pricing[tier] = binding.Pricing
		models[tier] = binding.Model
	}

	maxConcurrent := cfg.MaxConcurrentLLMCalls
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	ops := make(map[Operation]Tier, len(defaultOperationTiers))
	for op, tier := range defaultOperationTiers {
		ops[op] = tier
	}

	return &Router{
		clients:        clients,
		pricing:        pricing,
		models:         models,
		sem:            semaphore.NewWeighted(int64(maxConcurrent)),
		operationTiers: ops,
		cost:           make(map[Tier]float64),
	}, nil
}

// TierFor returns the tier bound to a logical operation.
func (r *Router) TierFor(op Operation) (Tier, error) {
	tier, ok := r.operationTiers[op]
	if !ok {
		return "", errs.Input(fmt.Sprintf("llm: unknown operation %q", op), nil)
	}
	return tier, nil
}

// Call dispatches req to the tier bound to req.Operation, honoring the
// concurrency cap, and accumulates cost on success.
func (r *Router) Call(ctx context.Context, req CallRequest) (CallResponse, error) {
	tier, err := r.TierFor(req.Operation)
	if err != nil {
		return CallResponse{}, err
	}
	return r.CallTier(ctx, tier, req)
}

// CallTier dispatches req directly against tier, bypassing the operation
// map. Used where the caller picks the tier itself: the Feedback Router's
// stuck-point fallback always forces opus, and code generation and the
// Validation Tool Builder call sonnet.
func (r *Router) CallTier(ctx context.Context, tier Tier, req CallRequest) (CallResponse, error) {
	client, ok := r.clients[tier]
	if !ok {
		return CallResponse{}, errs.Infrastructure(fmt.Sprintf("llm: no client for tier %q", tier), nil)
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return CallResponse{}, errs.Infrastructure("llm: acquiring concurrency slot", err)
	}
	defer r.sem.Release(1)

	log := logging.Get(logging.CategoryLLM)
	resp, err := client.Call(ctx, req)
	if err != nil {
		log.Warnw("llm call failed", "tier", tier, "operation", req.Operation, "error", err)
		return CallResponse{}, errs.LLM(fmt.Sprintf("llm: %s call for %s", tier, req.Operation), err)
	}
	resp.Tier = tier
	if resp.Model == "" {
		resp.Model = r.models[tier]
	}
	resp.CostUSD = r.priceCall(tier, resp.InputTokens, resp.OutputTokens)

	r.mu.Lock()
	r.cost[tier] += resp.CostUSD
	r.mu.Unlock()

	log.Debugw("llm call completed", "tier", tier, "operation", req.Operation,
		"input_tokens", resp.InputTokens, "output_tokens", resp.OutputTokens,
		"cost_usd", resp.CostUSD, "latency_ms", resp.LatencyMs)
	return resp, nil
}

func (r *Router) priceCall(tier Tier, inputTokens, outputTokens int) float64 {
	p, ok := r.pricing[tier]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*p.InputPer1M + float64(outputTokens)/1_000_000*p.OutputPer1M
}

// GetCostDistribution returns a snapshot of accumulated spend per tier.
func (r *Router) GetCostDistribution() CostDistribution {
	r.mu.Lock()
	defer r.mu.Unlock()

	dist := CostDistribution{ByTier: make(map[Tier]float64, len(r.cost))}
	for tier, c := range r.cost {
		dist.ByTier[tier] = c
		dist.Total += c
	}
	return dist
}
