package config

import "os"

// GeminiModels defines which Gemini models to use for different tasks
type GeminiModels struct {
	// Vision is for photo verification (plant check)
	Vision string `json:"vision"`

	// Chat is for the empathy role-play conversation (needs to be fast)
	Chat string `json:"chat"`

	// Validate is for resolution/report text validation
	Validate string `json:"validate"`

	// Image is the primary infographic generator
	Image string `json:"image"`

	// ImageFallback is tried once when Image returns an error or no image part
	ImageFallback string `json:"imageFallback"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey    string       `json:"-"` // Never serialize
	BaseURL   string       `json:"baseUrl"`
	Models    GeminiModels `json:"models"`
	TimeoutMS int          `json:"timeoutMs"`

	// Per-team request budget for judge calls
	RatePerMinute int `json:"ratePerMinute"`
	Burst         int `json:"burst"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		BaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		Models: GeminiModels{
			Vision:   getEnvOrDefault("GEMINI_MODEL_VISION", "gemini-2.0-flash"),
			Chat:     getEnvOrDefault("GEMINI_MODEL_CHAT", "gemini-2.0-flash"),
			Validate: getEnvOrDefault("GEMINI_MODEL_VALIDATE", "gemini-2.0-flash"),

			Image:         getEnvOrDefault("GEMINI_MODEL_IMAGE", "gemini-2.0-flash-preview-image-generation"),
			ImageFallback: getEnvOrDefault("GEMINI_MODEL_IMAGE_FALLBACK", "gemini-2.0-flash-exp"),
		},
		TimeoutMS:     getEnvInt("GEMINI_TIMEOUT_MS", 30000),
		RatePerMinute: getEnvInt("AI_RATE_PER_MINUTE", 20),
		Burst:         getEnvInt("AI_BURST", 5),
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}
