package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate checks all configuration values and returns sentinel errors
// checkable with errors.Is. Called from Load; config that fails validation
// never reaches the rest of the application.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the googleai provider", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty for the ollama provider", ErrInvalidProvider)
		}
	default:
		return fmt.Errorf("%w: %q, must be one of: googleai, ollama", ErrInvalidProvider, c.Provider)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("%w: generate_timeout must be positive, got %v", ErrInvalidTimeout, c.GenerateTimeout)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got overlap=%d size=%d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.UploadDir == "" {
		return fmt.Errorf("%w: upload_dir cannot be empty", ErrInvalidUpload)
	}
	if c.MaxFileSizeMB < 1 {
		return fmt.Errorf("%w: max_file_size_mb must be positive, got %d", ErrInvalidUpload, c.MaxFileSizeMB)
	}

	if c.WorkerCount < 1 || c.WorkerCount > 64 {
		return fmt.Errorf("%w: worker_count must be between 1 and 64, got %d", ErrInvalidWorkers, c.WorkerCount)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue_capacity must be positive, got %d", ErrInvalidWorkers, c.QueueCapacity)
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("%w: scan_interval must be positive, got %v", ErrInvalidScanner, c.ScanInterval)
	}

	if c.DefaultSearchLimit < 1 || c.DefaultSearchLimit > 100 {
		return fmt.Errorf("%w: default_search_limit must be between 1 and 100, got %d",
			ErrInvalidSearch, c.DefaultSearchLimit)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be between 0 and 1, got %.2f",
			ErrInvalidSearch, c.SimilarityThreshold)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "alexandria_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password for production deployments")
	}
	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// Deprecated allow/prefer modes are excluded; they downgrade silently.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
