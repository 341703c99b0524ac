package ttn

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

const minAPIKeyLength = 32

var (
	appIDPattern  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	devEUIPattern = regexp.MustCompile(`^[0-9a-fA-F]{16}$`)
)

var allowedRegions = map[string]struct{}{
	"eu1":  {},
	"nam1": {},
	"au1":  {},
	"as1":  {},
}

// ValidationResult accumulates every violated rule; Valid is true iff
// Errors is empty.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateConfig checks a network-application configuration. All rules are
// evaluated, in appId, apiKey, webhookUrl, region order, without
// short-circuiting on the first violation.
func ValidateConfig(conf entities.IntegrationTTNConfig) ValidationResult {
	var violations []string

	if conf.AppID == "" {
		violations = append(violations, "application id is required")
	} else if !appIDPattern.MatchString(conf.AppID) {
		violations = append(violations, "application id must be lowercase alphanumeric with internal hyphens")
	}

	if conf.APIKey == "" {
		violations = append(violations, "api key is required")
	} else if len(conf.APIKey) < minAPIKeyLength {
		violations = append(violations, fmt.Sprintf("api key must be at least %d characters", minAPIKeyLength))
	}

	if conf.WebhookURL != "" {
		parsed, err := url.Parse(conf.WebhookURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			violations = append(violations, "webhook url must be a valid http or https url")
		}
	}

	if conf.Region == "" {
		violations = append(violations, "region is required")
	} else if _, ok := allowedRegions[conf.Region]; !ok {
		violations = append(violations, "region must be one of eu1, nam1, au1, as1")
	}

	return ValidationResult{Valid: len(violations) == 0, Errors: violations}
}

// ValidateDevEUI reports whether id is a 64-bit EUI written as exactly 16
// hexadecimal characters, case-insensitive.
func ValidateDevEUI(id string) bool {
	return devEUIPattern.MatchString(id)
}
