package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds server settings loadable from a YAML file, with environment
// variable overrides for deployment.
type Config struct {
	Port             int    `yaml:"port"`
	DBPath           string `yaml:"db_path"`
	CompanyName      string `yaml:"company_name"`
	CompanyEmail     string `yaml:"company_email"`
	DefaultLaborRate string `yaml:"default_labor_rate"`
	VATRate          string `yaml:"vat_rate"`
	StaticDir        string `yaml:"static_dir"`
}

var cfg = defaultConfig()

func defaultConfig() Config {
	return Config{
		Port:             9000,
		DBPath:           "wrench.db",
		CompanyName:      "Your Workshop",
		CompanyEmail:     "admin@example.com",
		DefaultLaborRate: "50.00",
		VATRate:          "0.20",
		StaticDir:        "static",
	}
}

// loadConfig reads the YAML config file if present, then applies environment
// overrides. A missing file is not an error; a malformed one is.
func loadConfig(path string) (Config, error) {
	c := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return c, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("WRENCH_COMPANY_NAME"); v != "" {
		c.CompanyName = v
	}
	if v := os.Getenv("WRENCH_COMPANY_EMAIL"); v != "" {
		c.CompanyEmail = v
	}
	if v := os.Getenv("WRENCH_DB"); v != "" {
		c.DBPath = v
	}
	return c, nil
}
