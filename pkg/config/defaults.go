package config

const (
	defaultRelayListen    = ":8080"
	defaultAllowedOrigins = "*"

	defaultProviderBaseURL = "https://api.openai.com/v1"
	defaultProviderModel   = "gpt-4o-mini"
	defaultTimeoutSeconds  = 60

	defaultClientRelayTarget = "http://localhost:8080"
)

// defaultSystemPrompt is the base system prompt the relay injects when a
// request carries no system turn of its own. The relay appends its
// response-formatting instruction to it.
const defaultSystemPrompt = "You are a helpful, concise assistant. " +
	"Answer the user's questions directly and accurately, and say so when " +
	"you do not know something."

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Listen:         defaultRelayListen,
			AllowedOrigins: defaultAllowedOrigins,
			SystemPrompt:   defaultSystemPrompt,
		},
		Provider: ProviderConfig{
			BaseURL:        defaultProviderBaseURL,
			Model:          defaultProviderModel,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Client: ClientConfig{
			RelayTarget: defaultClientRelayTarget,
			Model:       defaultProviderModel,
		},
	}
}
