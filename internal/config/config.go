// Package config loads the agent's environment-driven configuration (§6.4),
// mirroring the recognized-options table and the §5 concurrency defaults.
// Separate from infrastructure/config, which holds deployment-level
// settings (server address, AWS region, JWT secret) that exist regardless
// of which domain this service implements.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LLMProvider selects which LLM collaborator internal/llm wires up.
type LLMProvider string

const (
	LLMProviderOpenAI     LLMProvider = "openai"
	LLMProviderAnthropic  LLMProvider = "anthropic"
	LLMProviderLocal      LLMProvider = "local"
)

// EmbeddingBackend selects where internal/llm computes embeddings.
type EmbeddingBackend string

const (
	EmbeddingBackendLocal    EmbeddingBackend = "local"
	EmbeddingBackendProvider EmbeddingBackend = "provider"
)

// Defaults holds the §5 concurrency/timeout defaults, every one overridable
// by an environment variable.
type Defaults struct {
	LLMChatTimeout     time.Duration
	ToolCallTimeout     time.Duration
	RequestTimeout      time.Duration
	SchedulerTick       time.Duration
}

// Config is the agent's environment-driven configuration (§6.4).
type Config struct {
	LLMProvider     LLMProvider
	EmbeddingBackend EmbeddingBackend

	UsePlaywright     bool
	UseCPMSForForms   bool

	KSGPatternReuseMinScore float64

	WorkingMemoryReinforceDelta float64
	WorkingMemoryMaxWeight      float64

	AsyncReplication bool

	SkipLLMForObviousIntents bool
	PlanMinConfidence        float64
	MaxAdaptAttempts         int

	ReuseThreshold float64

	Defaults Defaults
}

// Load builds a Config from the process environment, applying the
// documented defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		LLMProvider:      LLMProvider(getEnv("LLM_PROVIDER", string(LLMProviderLocal))),
		EmbeddingBackend: EmbeddingBackend(getEnv("EMBEDDING_BACKEND", string(EmbeddingBackendLocal))),

		UsePlaywright:   getEnvBool("USE_PLAYWRIGHT", false),
		UseCPMSForForms: getEnvBool("USE_CPMS_FOR_FORMS", false),

		KSGPatternReuseMinScore: getEnvFloat("KSG_PATTERN_REUSE_MIN_SCORE", 2.0),

		WorkingMemoryReinforceDelta: getEnvFloat("WORKING_MEMORY_REINFORCE_DELTA", 1.0),
		WorkingMemoryMaxWeight:      getEnvFloat("WORKING_MEMORY_MAX_WEIGHT", 100.0),

		AsyncReplication: getEnvBool("ASYNC_REPLICATION", false),

		SkipLLMForObviousIntents: getEnvBool("SKIP_LLM_FOR_OBVIOUS_INTENTS", true),
		PlanMinConfidence:        getEnvFloat("PLAN_MIN_CONFIDENCE", 0.9),
		MaxAdaptAttempts:         getEnvInt("MAX_ADAPT_ATTEMPTS", 3),

		ReuseThreshold: getEnvFloat("REUSE_THRESHOLD", 0.8),

		Defaults: Defaults{
			LLMChatTimeout:  getEnvDuration("LLM_CHAT_TIMEOUT", 60*time.Second),
			ToolCallTimeout: getEnvDuration("TOOL_CALL_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 5*time.Minute),
			SchedulerTick:   getEnvDuration("SCHEDULER_TICK", 1*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that would violate an invariant rather
// than fail loudly later (e.g. a confidence gate no plan could ever pass).
func (c *Config) Validate() error {
	if c.PlanMinConfidence < 0 || c.PlanMinConfidence > 1 {
		return fmt.Errorf("PLAN_MIN_CONFIDENCE must be in [0,1], got %f", c.PlanMinConfidence)
	}
	if c.ReuseThreshold < 0 || c.ReuseThreshold > 1 {
		return fmt.Errorf("REUSE_THRESHOLD must be in [0,1], got %f", c.ReuseThreshold)
	}
	if c.MaxAdaptAttempts < 0 {
		return fmt.Errorf("MAX_ADAPT_ATTEMPTS must be >= 0, got %d", c.MaxAdaptAttempts)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
