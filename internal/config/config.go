package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		ID  string `yaml:"id"`
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Auth struct {
		Secret        string `yaml:"secret"`
		AllowedDomain string `yaml:"allowed_domain"` // e.g. "@krmu.edu.in"
		LinkURL       string `yaml:"link_url"`       // sign-in page the link points at
		LinkTTL       string `yaml:"link_ttl"`
		SessionTTL    string `yaml:"session_ttl"`
	} `yaml:"auth"`
	Mail struct {
		SendgridKey string `yaml:"sendgrid_key"`
		FromName    string `yaml:"from_name"`
		FromAddr    string `yaml:"from_addr"`
		AppName     string `yaml:"app_name"`
	} `yaml:"mail"`
	RateLimit struct {
		MaxPerWindow int    `yaml:"max_per_window"`
		Window       string `yaml:"window"`
		MinInterval  string `yaml:"min_interval"`
	} `yaml:"ratelimit"`
	Gatekeeper struct {
		// RedirectAuthenticated sends a flagged session hitting the login
		// page straight to the dashboard. Off by default; the policy has
		// flip-flopped historically, so it stays an explicit switch.
		RedirectAuthenticated bool   `yaml:"redirect_authenticated"`
		LoginPath             string `yaml:"login_path"`
		DashboardPath         string `yaml:"dashboard_path"`
	} `yaml:"gatekeeper"`
	CORS struct {
		AllowedOrigin string `yaml:"allowed_origin"`
	} `yaml:"cors"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
