package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ScenarioConfig tunes the end-to-end scenario from the environment, so CI
// can stretch the waits on slow runners without touching the test.
type ScenarioConfig struct {
	CSRFToken string        `envconfig:"CHAT_TEST_CSRF_TOKEN" default:"test-csrf"`
	WaitFor   time.Duration `envconfig:"CHAT_TEST_WAIT_FOR" default:"5s"`
	Tick      time.Duration `envconfig:"CHAT_TEST_TICK" default:"20ms"`
	PageLimit int           `envconfig:"CHAT_TEST_PAGE_LIMIT" default:"50"`
}

func LoadScenarioConfig() (ScenarioConfig, error) {
	var cfg ScenarioConfig
	err := envconfig.Process("", &cfg)
	return cfg, err
}
