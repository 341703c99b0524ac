package entities

// IntegrationTTNConfig identifies the network-server application the
// emulator simulates uplinks for.
type IntegrationTTNConfig struct {
	AppID      string `yaml:"appId" json:"app_id"`
	APIKey     string `yaml:"apiKey" json:"api_key"`
	WebhookURL string `yaml:"webhookUrl" json:"webhook_url,omitempty"`
	Region     string `yaml:"region" json:"region"`
}
