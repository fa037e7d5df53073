package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedTerms(t *testing.T) {
	cfg := &Config{Business: BusinessConfig{AllowedTerms: "3,6"}}
	assert.Equal(t, []int{3, 6}, cfg.AllowedTerms())

	assert.True(t, cfg.TermAllowed(3))
	assert.True(t, cfg.TermAllowed(6))
	assert.False(t, cfg.TermAllowed(4))
	assert.False(t, cfg.TermAllowed(0))
}

func TestAllowedTerms_SkipsMalformedEntries(t *testing.T) {
	cfg := &Config{Business: BusinessConfig{AllowedTerms: " 3 , six, -1, 12 "}}
	assert.Equal(t, []int{3, 12}, cfg.AllowedTerms())
}

func TestCurrencyAllowed(t *testing.T) {
	cfg := &Config{Business: BusinessConfig{AllowedCurrencies: "idr, SGD"}}

	assert.Equal(t, []string{"IDR", "SGD"}, cfg.AllowedCurrencies())
	assert.True(t, cfg.CurrencyAllowed("IDR"))
	assert.True(t, cfg.CurrencyAllowed("SGD"))
	assert.False(t, cfg.CurrencyAllowed("USD"))
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{URL: "postgres://localhost/lending"},
		Business: BusinessConfig{
			AllowedTerms:      "3,6",
			AllowedCurrencies: "IDR,SGD",
			CardValidityYears: 4,
		},
		Scheduler: SchedulerConfig{ReminderWindowDays: 3},
	}
	assert.NoError(t, valid.Validate())

	missingDB := *valid
	missingDB.Database.URL = ""
	assert.Error(t, missingDB.Validate())

	noTerms := *valid
	noTerms.Business.AllowedTerms = "zero"
	assert.Error(t, noTerms.Validate())

	noWindow := *valid
	noWindow.Scheduler.ReminderWindowDays = 0
	assert.Error(t, noWindow.Validate())
}
