package model

import (
	"fmt"
	"strings"
	"sync"
)

// Factory builds a configured Model for one model name within a provider.
// Implementations pull credentials and endpoints from their own configuration
// (typically environment variables).
type Factory func(modelName string) (Model, error)

var providers = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

// RegisterProvider makes a provider available to New under the given id.
// Provider packages call it from init; import them blank to activate:
//
//	import _ "github.com/hupe1980/legion/model/openai"
//
// Registering the same id twice panics, mirroring database/sql drivers.
func RegisterProvider(id string, f Factory) {
	providers.mu.Lock()
	defer providers.mu.Unlock()

	if _, exists := providers.factories[id]; exists {
		panic(fmt.Sprintf("model: provider %q registered twice", id))
	}

	providers.factories[id] = f
}

// Providers returns the registered provider ids.
func Providers() []string {
	providers.mu.RLock()
	defer providers.mu.RUnlock()

	ids := make([]string, 0, len(providers.factories))
	for id := range providers.factories {
		ids = append(ids, id)
	}

	return ids
}

// ParseRef splits a model reference of the form "provider:model" (e.g.
// "openai:gpt-4o", "anthropic:claude-sonnet-4-20250514", "ollama:llama3.1").
func ParseRef(ref string) (provider, name string, err error) {
	provider, name, ok := strings.Cut(ref, ":")
	if !ok || provider == "" || name == "" {
		return "", "", fmt.Errorf("model: invalid reference %q, want \"provider:model\"", ref)
	}

	return provider, name, nil
}

// New resolves a model reference through the registered provider factories.
func New(ref string) (Model, error) {
	provider, name, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	providers.mu.RLock()
	factory, ok := providers.factories[provider]
	providers.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model: unknown provider %q (is its package imported?)", provider)
	}

	return factory(name)
}
