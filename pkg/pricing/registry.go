// Package pricing provides per-provider price lookups used for cost
// estimates on the routing path.
package pricing

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

//go:embed data/defaults.json
var defaultPrices []byte

// ProviderPrice holds the USD cost per 1K tokens for one provider, plus the
// model used when a task does not name one.
type ProviderPrice struct {
	InputCostPer1KTokens  float64 `json:"input_cost_per_1k_tokens"`
	OutputCostPer1KTokens float64 `json:"output_cost_per_1k_tokens"`
	DefaultModel          string  `json:"default_model"`
}

// Registry maps provider names to prices.
type Registry struct {
	mu     sync.RWMutex
	prices map[string]ProviderPrice
}

// NewRegistry creates a registry preloaded with the embedded defaults.
func NewRegistry() *Registry {
	r := &Registry{prices: make(map[string]ProviderPrice)}
	if err := r.loadBytes(defaultPrices); err != nil {
		// Embedded data is validated at build time.
		panic(fmt.Sprintf("failed to load default prices: %v", err))
	}
	return r
}

// Load merges prices from a JSON file over the defaults.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.loadBytes(data)
}

func (r *Registry) loadBytes(data []byte) error {
	var prices map[string]ProviderPrice
	if err := json.Unmarshal(data, &prices); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range prices {
		r.prices[k] = v
	}
	return nil
}

// Price returns the price entry for a provider.
func (r *Registry) Price(provider string) (ProviderPrice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prices[provider]
	return p, ok
}

// DefaultModel returns the configured default model for a provider, or an
// empty string when the provider is unknown.
func (r *Registry) DefaultModel(provider string) string {
	p, ok := r.Price(provider)
	if !ok {
		return ""
	}
	return p.DefaultModel
}

// Estimate returns the estimated USD cost of a request against the provider,
// assuming the estimated token count splits evenly between input and output.
// Unknown providers estimate to zero.
func (r *Registry) Estimate(provider string, estimatedTokens int) float64 {
	p, ok := r.Price(provider)
	if !ok || estimatedTokens <= 0 {
		return 0
	}
	half := float64(estimatedTokens) / 2
	return half/1000*p.InputCostPer1KTokens + half/1000*p.OutputCostPer1KTokens
}
