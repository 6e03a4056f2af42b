package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that call external services.
type HTTPConfig struct {
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "enrichdoc/0.1"). Wikipedia requires a descriptive one.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the response length per invocation (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed API calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// WikiConfig holds settings for the Wikipedia lookup backend.
type WikiConfig struct {
	HTTPConfig `yaml:",inline"`

	// Language selects the Wikipedia language edition (default "en").
	Language string `json:"language" yaml:"language"`

	// MaxResults is the maximum number of lookup results per query (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// SummarySentences bounds the extract length requested per page (default 5).
	SummarySentences int `json:"summary_sentences" yaml:"summary_sentences"`

	// MaxRetries is the number of retry attempts for rate-limited or
	// transiently failing lookup requests (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EmbeddingConfig holds settings for the embedding backend.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the embedder: "ollama" or "hash".
	Provider string `json:"provider" yaml:"provider"`

	// Endpoint is the Ollama base URL (default "http://localhost:11434").
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the embedding model name (default "nomic-embed-text").
	Model string `json:"model" yaml:"model"`

	// Dimensions is the embedding vector size (default 768; 256 for "hash").
	Dimensions int `json:"dimensions" yaml:"dimensions"`
}

// MemoryConfig holds settings for the persistent section memory.
type MemoryConfig struct {
	// StorageDir is the directory holding the memory database (default "storage/").
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// DedupThreshold is the cosine similarity above which two records of the
	// same kind are treated as one (default 0.92).
	DedupThreshold float64 `json:"dedup_threshold" yaml:"dedup_threshold"`

	// LinkThreshold is the similarity above which a term counts as already
	// linked in this document (default 0.95).
	LinkThreshold float64 `json:"link_threshold" yaml:"link_threshold"`
}

// GateConfig holds settings for the consistency gate.
type GateConfig struct {
	// Threshold is the minimum similarity between a section's original text
	// and a stage's added text for the addition to be accepted (default 0.75).
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// PipelineConfig holds settings for the per-section enrichment pipeline.
type PipelineConfig struct {
	AIConfig `yaml:",inline"`

	// Workers bounds concurrent section processing (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MaxLinks is the maximum number of terms linked per section (default 4).
	MaxLinks int `json:"max_links" yaml:"max_links"`

	// MaxTopics is the maximum number of research topics per section (default 3).
	MaxTopics int `json:"max_topics" yaml:"max_topics"`
}

// EnrichConfig groups all stage configurations for an enrichment run.
type EnrichConfig struct {
	Wiki      WikiConfig      `json:"wiki" yaml:"wiki"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Memory    MemoryConfig    `json:"memory" yaml:"memory"`
	Gate      GateConfig      `json:"gate" yaml:"gate"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline"`
}
