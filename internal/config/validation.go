package config

import (
	"fmt"
	"net/url"
	"os"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// 0. Check for nil config (defensive programming)
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and API key validation. "gemini" is a legacy alias for
	// "googleai"; an empty provider means the default. Ollama is local and
	// needs no key.
	switch c.Provider {
	case "", ProviderGoogleAI, ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	default:
		return fmt.Errorf("%w: %q is not one of googleai, gemini, ollama, openai", ErrInvalidProvider, c.Provider)
	}

	// 2. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTokens range: 1 to 2097152 (Gemini 2.5 max context window)
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// 3. Embedder configuration validation
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.EmbeddingDims < 1 || c.EmbeddingDims > 4096 {
		return fmt.Errorf("%w: must be between 1 and 4096, got %d", ErrInvalidEmbeddingDims, c.EmbeddingDims)
	}

	// 4. Subject validation. Subject names become SQLite table name
	// suffixes (documents_<subject>), so only lowercase letters pass.
	if len(c.Subjects) == 0 {
		return ErrNoSubjects
	}
	for _, s := range c.Subjects {
		if !isValidSubject(s) {
			return fmt.Errorf("%w: %q must be 1-32 lowercase letters", ErrInvalidSubject, s)
		}
	}

	// 5. Chunking validation
	if c.ChunkSize < 50 || c.ChunkSize > 4000 {
		return fmt.Errorf("%w: chunk_size must be between 50 and 4000, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be >= 0 and < chunk_size, got %d", ErrInvalidChunking, c.ChunkOverlap)
	}

	// 6. Search depth validation
	if c.SearchTopK < 1 || c.SearchTopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.SearchTopK)
	}

	// 7. Storage validation
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", ErrInvalidDataDir)
	}
	if c.DatabaseFile == "" {
		return fmt.Errorf("%w: database_file cannot be empty", ErrInvalidDataDir)
	}
	if c.ProfilesFile == "" {
		return fmt.Errorf("%w: profiles_file cannot be empty", ErrInvalidDataDir)
	}

	return nil
}

// ValidateServe validates configuration for serve mode, on top of Validate.
// CLI commands skip these checks; only the HTTP server needs them.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: rate_limit_rps must be positive, got %g", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimitBurst)
	}

	// Bounded so a typo can neither reject every PDF nor invite misuse:
	// 1 KiB minimum, 512 MiB maximum.
	if c.MaxUploadBytes < 1<<10 || c.MaxUploadBytes > 512<<20 {
		return fmt.Errorf("%w: max_upload_bytes must be between 1KiB and 512MiB, got %d", ErrInvalidUploadLimit, c.MaxUploadBytes)
	}

	for _, origin := range c.CORSOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q must be an absolute http(s) URL", ErrInvalidCORSOrigin, origin)
		}
	}

	return nil
}

// isValidSubject checks if a subject name is usable as a table suffix.
func isValidSubject(s string) bool {
	if len(s) == 0 || len(s) > 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
