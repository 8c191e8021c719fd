package config

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig        `mapstructure:"server" yaml:"server"`
	Provider ProviderConfig      `mapstructure:"provider" yaml:"provider"`
	Pipeline PipelineConfig      `mapstructure:"pipeline" yaml:"pipeline"`
	Aliases  map[string][]string `mapstructure:"aliases" yaml:"aliases"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// ProviderConfig holds vision model provider settings.
type ProviderConfig struct {
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
	RateLimitRPM   int    `mapstructure:"rate_limit_rpm" yaml:"rate_limit_rpm"`
}

// PipelineConfig holds extraction pipeline limits.
type PipelineConfig struct {
	MaxDocumentMB       int  `mapstructure:"max_document_mb" yaml:"max_document_mb"`
	FetchTimeoutSeconds int  `mapstructure:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
	AcquireAttempts     int  `mapstructure:"acquire_attempts" yaml:"acquire_attempts"`
	MaxPages            int  `mapstructure:"max_pages" yaml:"max_pages"`
	RenderDPI           int  `mapstructure:"render_dpi" yaml:"render_dpi"`
	MaxImageDim         int  `mapstructure:"max_image_dim" yaml:"max_image_dim"`
	PageConcurrency     int  `mapstructure:"page_concurrency" yaml:"page_concurrency"`
	DeadlineSeconds     int  `mapstructure:"deadline_seconds" yaml:"deadline_seconds"`
	ClassifyReports     bool `mapstructure:"classify_reports" yaml:"classify_reports"`
}
