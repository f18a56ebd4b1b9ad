package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PrimaryModel is the display name of the default backend and the target of
// fallback retries.
const PrimaryModel = "Gemini Pro"

// Provider turns a prompt into response text.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StubProvider stands in for models that are not wired to a real backend.
// It answers with a placeholder after Delay.
type StubProvider struct {
	Model string
	Delay time.Duration
}

// Generate waits Delay (or until ctx ends) and returns placeholder text.
func (s StubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Sprintf("Simulated output from %s for prompt: %s", s.Model, prompt), nil
}

// Catalog maps selectable model names to providers. One entry is primary.
type Catalog struct {
	mu        sync.RWMutex
	primary   string
	providers map[string]Provider
	order     []string
}

// NewCatalog registers primary under primaryName.
func NewCatalog(primaryName string, primary Provider) *Catalog {
	c := &Catalog{primary: primaryName, providers: map[string]Provider{}}
	c.Register(primaryName, primary)
	return c
}

// DefaultCatalog registers the primary backend plus the stubbed models.
func DefaultCatalog(primary Provider) *Catalog {
	c := NewCatalog(PrimaryModel, primary)
	for _, name := range []string{"GPT-4", "Claude", "Mistral"} {
		c.Register(name, StubProvider{Model: name, Delay: time.Second})
	}
	return c
}

// Register adds or replaces a model.
func (c *Catalog) Register(name string, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.providers[name]; !ok {
		c.order = append(c.order, name)
	}
	c.providers[name] = p
}

// Get looks up a model by name.
func (c *Catalog) Get(name string) (Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[name]
	return p, ok
}

// Primary returns the primary model name and provider.
func (c *Catalog) Primary() (string, Provider) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.primary, c.providers[c.primary]
}

// IsPrimary reports whether name is the primary model.
func (c *Catalog) IsPrimary(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return name == c.primary
}

// Names lists models in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}
