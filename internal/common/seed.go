package common

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// SeedAccount describes one account to open for a seed user.
type SeedAccount struct {
	Balance string `yaml:"balance"`
	Blocked bool   `yaml:"blocked"`
}

// SeedUser describes one user to create. Guardian references an earlier entry
// by "First Last" name, so adults must appear before their wards.
type SeedUser struct {
	FirstName   string        `yaml:"first_name"`
	LastName    string        `yaml:"last_name"`
	DateOfBirth string        `yaml:"date_of_birth"`
	PhoneNumber string        `yaml:"phone_number"`
	Guardian    string        `yaml:"guardian"`
	Accounts    []SeedAccount `yaml:"accounts"`
}

type SeedConfig struct {
	Users []SeedUser `yaml:"users"`
}

const seedDateLayout = "2006-01-02"

func LoadSeedConfig(seedFile string) (*SeedConfig, error) {
	var seedPath string
	if filepath.IsAbs(seedFile) {
		seedPath = seedFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		seedPath = filepath.Join(wd, seedFile)
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", seedFile, err)
	}

	var config SeedConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", seedFile, err)
	}

	for i, user := range config.Users {
		if user.FirstName == "" {
			return nil, fmt.Errorf("user at index %d missing first_name", i)
		}
		if user.LastName == "" {
			return nil, fmt.Errorf("user at index %d missing last_name", i)
		}
		if _, err := ParseSeedDate(user.DateOfBirth); err != nil {
			return nil, fmt.Errorf("user at index %d: %w", i, err)
		}
		for j, account := range user.Accounts {
			if account.Balance == "" {
				return nil, fmt.Errorf("user at index %d account %d missing balance", i, j)
			}
		}
	}

	return &config, nil
}

// ParseSeedDate parses a date-of-birth in YYYY-MM-DD form.
func ParseSeedDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing date_of_birth")
	}
	parsed, err := time.Parse(seedDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date_of_birth %q: %w", value, err)
	}
	return parsed, nil
}
