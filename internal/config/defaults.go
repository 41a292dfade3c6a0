package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:  "http://localhost:8181/admin-console",
		Language:  "en",
		Username:  "admin",
		TimeoutMS: 5000,
		Stub: StubConfig{
			Port:     8181,
			DataDir:  ".sitemapctl-stub",
			Password: "admin",
		},
	}
}
