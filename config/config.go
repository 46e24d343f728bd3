// Package config builds a fully wired runner from a TOML file. It covers
// providers (credentials, endpoints), agents (model reference, instruction,
// limits), teams and chains; tools are code, so they are attached
// programmatically through BuildOptions.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/legion/agent"
	"github.com/hupe1980/legion/logging"
	"github.com/hupe1980/legion/memory"
	"github.com/hupe1980/legion/memory/sqlite"
	"github.com/hupe1980/legion/model"
	"github.com/hupe1980/legion/model/anthropic"
	"github.com/hupe1980/legion/model/ollama"
	"github.com/hupe1980/legion/model/openai"
	"github.com/hupe1980/legion/runner"
	"github.com/hupe1980/legion/tool"
)

// Config is the top-level TOML document.
//
// Example:
//
//	[runner]
//	store = "sqlite"
//	sqlite_path = "legion.db"
//
//	[providers.openai]
//	api_key = "${OPENAI_API_KEY}"
//
//	[agents.researcher]
//	model = "openai:gpt-4o-mini"
//	instruction = "You research topics and answer concisely."
//	max_turns = 5
//
//	[agents.editor]
//	model = "openai:gpt-4o"
//	instruction = "You assemble answers from your team."
//	team = ["researcher"]
type Config struct {
	Runner    RunnerConfig              `toml:"runner"`
	Providers map[string]ProviderConfig `toml:"providers"`
	Agents    map[string]AgentConfig    `toml:"agents"`
}

// RunnerConfig selects the conversation store and event buffering.
type RunnerConfig struct {
	// Store is "memory" (default) or "sqlite".
	Store string `toml:"store"`
	// SQLitePath is the database file for the sqlite store.
	// Defaults to "legion.db".
	SQLitePath string `toml:"sqlite_path"`
	// EventBufferSize sets channel buffering for submitted runs.
	EventBufferSize int `toml:"event_buffer_size"`
}

// ProviderConfig carries credentials and endpoint overrides for one provider.
// Values are passed through os.ExpandEnv, so "${OPENAI_API_KEY}" resolves at
// build time.
type ProviderConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// AgentConfig declares one agent. Exactly one of Model and Chain must be
// set: Model declares a model-driven agent, Chain a sequential pipeline over
// previously declared agents.
type AgentConfig struct {
	Model       string   `toml:"model"` // "provider:model" reference
	Description string   `toml:"description"`
	Instruction string   `toml:"instruction"`
	MaxTurns    int      `toml:"max_turns"`
	Temperature *float64 `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	Team        []string `toml:"team"`  // members this agent may delegate to
	Chain       []string `toml:"chain"` // pipeline stages, in order
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Parse parses a TOML config document from memory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	return &cfg, nil
}

// BuildOptions supplies the pieces that cannot live in a file.
type BuildOptions struct {
	// Logger receives structured diagnostics from the runner and agents.
	Logger logging.Logger
	// Tools attaches tools to agents by agent name.
	Tools map[string][]tool.Tool
	// Models overrides the model for an agent by name, bypassing the
	// provider configuration. Useful for tests.
	Models map[string]model.Model
}

// Build assembles a runner from the configuration: store, providers, agents,
// team wiring and chains.
func (c *Config) Build(optFns ...func(o *BuildOptions)) (*runner.Runner, error) {
	var opts BuildOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	store, err := c.buildStore()
	if err != nil {
		return nil, err
	}

	r := runner.New(func(o *runner.Options) {
		o.Store = store
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
		if c.Runner.EventBufferSize > 0 {
			o.EventBufferSize = c.Runner.EventBufferSize
		}
	})

	agents := make(map[string]*agent.Agent)

	// Model-driven agents first; chains may reference them by name.
	for name, ac := range c.Agents {
		if len(ac.Chain) > 0 {
			if ac.Model != "" {
				return nil, fmt.Errorf("config: agent %q: model and chain are mutually exclusive", name)
			}

			continue
		}

		a, err := c.buildAgent(name, ac, opts)
		if err != nil {
			return nil, err
		}

		if err := r.Register(a); err != nil {
			return nil, err
		}

		agents[name] = a
	}

	// Team wiring: equip each leader with a delegate tool per member.
	for name, ac := range c.Agents {
		leader, ok := agents[name]
		if !ok {
			continue
		}

		for _, member := range ac.Team {
			mc, declared := c.Agents[member]
			if !declared {
				return nil, fmt.Errorf("config: agent %q: unknown team member %q", name, member)
			}

			description := mc.Description
			if description == "" {
				description = fmt.Sprintf("Hand a sub-request to the %q agent.", member)
			}

			if err := leader.Registry().Register(tool.NewDelegateTool(member, description)); err != nil {
				return nil, err
			}
		}
	}

	if err := c.buildChains(r); err != nil {
		return nil, err
	}

	return r, nil
}

func (c *Config) buildStore() (memory.Store, error) {
	switch c.Runner.Store {
	case "", "memory":
		return memory.NewInMemoryStore(), nil
	case "sqlite":
		path := c.Runner.SQLitePath
		if path == "" {
			path = "legion.db"
		}

		return sqlite.NewStore(path)
	default:
		return nil, fmt.Errorf("config: unknown store %q, want \"memory\" or \"sqlite\"", c.Runner.Store)
	}
}

func (c *Config) buildAgent(name string, ac AgentConfig, opts BuildOptions) (*agent.Agent, error) {
	m := opts.Models[name]

	if m == nil {
		if ac.Model == "" {
			return nil, fmt.Errorf("config: agent %q: model reference is required", name)
		}

		built, err := c.buildModel(ac.Model)
		if err != nil {
			return nil, fmt.Errorf("config: agent %q: %w", name, err)
		}

		m = built
	}

	return agent.New(name, m, func(o *agent.Options) {
		o.Description = ac.Description
		o.Instruction = agent.NewInstructionFromText(ac.Instruction)
		o.Tools = opts.Tools[name]
		o.Temperature = ac.Temperature
		o.MaxTokens = ac.MaxTokens
		if ac.MaxTurns > 0 {
			o.MaxTurns = ac.MaxTurns
		}
	})
}

// buildModel resolves a "provider:model" reference, applying any provider
// overrides from the [providers] table. Providers without overrides go
// through the model factory registry.
func (c *Config) buildModel(ref string) (model.Model, error) {
	provider, name, err := model.ParseRef(ref)
	if err != nil {
		return nil, err
	}

	pc, configured := c.Providers[provider]
	if !configured {
		return model.New(ref)
	}

	apiKey := os.ExpandEnv(pc.APIKey)
	baseURL := os.ExpandEnv(pc.BaseURL)

	switch provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.Model = name
			o.APIKey = apiKey
			o.BaseURL = baseURL
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(name)
			o.APIKey = apiKey
		}), nil
	case "ollama":
		return ollama.NewModel(func(o *ollama.Options) {
			o.Model = name
			o.BaseURL = baseURL
		})
	default:
		return nil, fmt.Errorf("provider %q does not accept [providers] overrides", provider)
	}
}

// buildChains registers chain agents, resolving stages against already
// registered agents. Chains may reference other chains; rounds repeat until
// no progress is possible.
func (c *Config) buildChains(r *runner.Runner) error {
	pending := make(map[string]AgentConfig)
	for name, ac := range c.Agents {
		if len(ac.Chain) > 0 {
			pending[name] = ac
		}
	}

	for len(pending) > 0 {
		progressed := false

		for name, ac := range pending {
			stages := make([]runner.Agent, 0, len(ac.Chain))

			resolved := true
			for _, stageName := range ac.Chain {
				stage, ok := r.Resolve(stageName)
				if !ok {
					resolved = false
					break
				}

				stages = append(stages, stage)
			}

			if !resolved {
				continue
			}

			chain, err := runner.NewChain(name, stages, func(o *runner.ChainOptions) {
				o.Description = ac.Description
			})
			if err != nil {
				return err
			}

			if err := r.Register(chain); err != nil {
				return err
			}

			delete(pending, name)

			progressed = true
		}

		if !progressed {
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}

			return fmt.Errorf("config: unresolvable chain stages (missing or cyclic): %v", names)
		}
	}

	return nil
}
