package config

import "time"

// LLMConfig holds the completion-provider settings
type LLMConfig struct {
	Provider   string
	Timeout    time.Duration
	MaxRetries int
}

// GetLLM returns the completion-provider settings
func (c *Config) GetLLM() LLMConfig {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		timeout = 20 * time.Second
	}
	return LLMConfig{
		Provider:   c.GetString("llm.provider"),
		Timeout:    timeout,
		MaxRetries: c.GetInt("llm.max_retries"),
	}
}

// EmbeddingConfig holds the embedding-provider settings
type EmbeddingConfig struct {
	Provider string
	Timeout  time.Duration
}

// GetEmbedding returns the embedding-provider settings
func (c *Config) GetEmbedding() EmbeddingConfig {
	timeout, err := c.GetDuration("embedding.timeout")
	if err != nil {
		timeout = 15 * time.Second
	}
	return EmbeddingConfig{
		Provider: c.GetString("embedding.provider"),
		Timeout:  timeout,
	}
}

// OpenAIConfig holds the OpenAI provider settings
type OpenAIConfig struct {
	APIKey             string
	ModelName          string
	EmbeddingModelName string
	MaxTokens          int
	Temperature        float32
	TopP               float32
}

// GetOpenAI returns the OpenAI provider settings
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:             c.GetString("openai.api_key"),
		ModelName:          c.GetString("openai.model_name"),
		EmbeddingModelName: c.GetString("openai.embedding_model_name"),
		MaxTokens:          c.GetInt("openai.max_tokens"),
		Temperature:        float32(c.GetFloat64("openai.temperature")),
		TopP:               float32(c.GetFloat64("openai.top_p")),
	}
}

// GeminiConfig holds the Gemini provider settings
type GeminiConfig struct {
	APIKey             string
	ModelName          string
	EmbeddingModelName string
	MaxTokens          int
	Temperature        float32
	TopP               float32
}

// GetGemini returns the Gemini provider settings
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:             c.GetString("gemini.api_key"),
		ModelName:          c.GetString("gemini.model_name"),
		EmbeddingModelName: c.GetString("gemini.embedding_model_name"),
		MaxTokens:          c.GetInt("gemini.max_tokens"),
		Temperature:        float32(c.GetFloat64("gemini.temperature")),
		TopP:               float32(c.GetFloat64("gemini.top_p")),
	}
}

// BedrockConfig holds the Amazon Bedrock provider settings
type BedrockConfig struct {
	Region           string
	ModelID          string
	EmbeddingModelID string
	MaxTokens        int
	Temperature      float32
	TopP             float32
}

// GetBedrock returns the Bedrock provider settings
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:           c.GetString("bedrock.region"),
		ModelID:          c.GetString("bedrock.model_id"),
		EmbeddingModelID: c.GetString("bedrock.embedding_model_id"),
		MaxTokens:        c.GetInt("bedrock.max_tokens"),
		Temperature:      float32(c.GetFloat64("bedrock.temperature")),
		TopP:             float32(c.GetFloat64("bedrock.top_p")),
	}
}

// SimilarityConfig holds the cosine-similarity thresholds. LinkWindow
// bounds how many recent emails the embedding-based thread linker scans.
type SimilarityConfig struct {
	LinkThreshold   float64
	LinkWindow      int
	FilterThreshold float64
	MergeThreshold  float64
}

// GetSimilarity returns the similarity thresholds
func (c *Config) GetSimilarity() SimilarityConfig {
	return SimilarityConfig{
		LinkThreshold:   c.GetFloat64("similarity.link_threshold"),
		LinkWindow:      c.GetInt("similarity.link_window"),
		FilterThreshold: c.GetFloat64("similarity.filter_threshold"),
		MergeThreshold:  c.GetFloat64("similarity.merge_threshold"),
	}
}

// ClusterConfig holds the density-clustering settings
type ClusterConfig struct {
	Epsilon   float64
	MinPoints int
}

// GetCluster returns the clustering settings
func (c *Config) GetCluster() ClusterConfig {
	return ClusterConfig{
		Epsilon:   c.GetFloat64("cluster.epsilon"),
		MinPoints: c.GetInt("cluster.min_points"),
	}
}

// RetrievalConfig holds candidate retrieval limits
type RetrievalConfig struct {
	MaxCandidates int
	MinResults    int
}

// GetRetrieval returns the retrieval limits
func (c *Config) GetRetrieval() RetrievalConfig {
	return RetrievalConfig{
		MaxCandidates: c.GetInt("retrieval.max_candidates"),
		MinResults:    c.GetInt("retrieval.min_results"),
	}
}
