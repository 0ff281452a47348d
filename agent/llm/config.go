package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	openrouterx "github.com/tanpawarit/dikas-orlando/pkg/openrouter"
)

// Role selects the per-call model settings.
type Role string

const (
	RoleClassifier Role = "classifier"
	RoleItinerary  Role = "itinerary"
	RoleGenerator  Role = "generator"
	RoleWebSearch  Role = "web_search"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"0.5"`
	ClassifierMaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" split_words:"true" default:"500"`

	ItineraryModel       string  `envconfig:"ITINERARY_MODEL" split_words:"true"`
	ItineraryTemperature float32 `envconfig:"ITINERARY_TEMPERATURE" split_words:"true" default:"0.5"`
	ItineraryMaxTokens   int     `envconfig:"ITINERARY_MAX_TOKENS" split_words:"true" default:"2048"`

	GeneratorModel       string  `envconfig:"GENERATOR_MODEL" split_words:"true"`
	GeneratorTemperature float32 `envconfig:"GENERATOR_TEMPERATURE" split_words:"true" default:"0.7"`
	GeneratorMaxTokens   int     `envconfig:"GENERATOR_MAX_TOKENS" split_words:"true" default:"3500"`

	WebModel       string  `envconfig:"WEB_MODEL" split_words:"true" default:"openai/gpt-4o-mini:online"`
	WebTemperature float32 `envconfig:"WEB_TEMPERATURE" split_words:"true" default:"0.3"`
	WebMaxTokens   int     `envconfig:"WEB_MAX_TOKENS" split_words:"true" default:"1000"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" split_words:"true" default:"5"`
	BreakerTimeout     time.Duration `envconfig:"BREAKER_TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// Settings are the resolved sampling parameters for one role.
type Settings struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

func (c Config) SettingsFor(role Role) Settings {
	s := Settings{
		Model:       strings.TrimSpace(c.Model),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxCompletionToken,
	}

	override := func(modelName string, temp float32, maxTokens int) {
		if v := strings.TrimSpace(modelName); v != "" {
			s.Model = v
		}
		if temp >= 0 {
			s.Temperature = temp
		}
		if maxTokens > 0 {
			s.MaxTokens = maxTokens
		}
	}

	switch role {
	case RoleClassifier:
		override(c.ClassifierModel, c.ClassifierTemperature, c.ClassifierMaxTokens)
	case RoleItinerary:
		override(c.ItineraryModel, c.ItineraryTemperature, c.ItineraryMaxTokens)
	case RoleGenerator:
		override(c.GeneratorModel, c.GeneratorTemperature, c.GeneratorMaxTokens)
	case RoleWebSearch:
		override(c.WebModel, c.WebTemperature, c.WebMaxTokens)
	}
	return s
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	s := c.SettingsFor(role)
	maxCompletionToken := s.MaxTokens
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              s.Model,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        s.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) Breaker() BreakerConfig {
	return BreakerConfig{
		MaxFailures: c.BreakerMaxFailures,
		Timeout:     c.BreakerTimeout,
	}
}
