package config

// Config is the top-level sitemapctl configuration, corresponding to
// .sitemapctl.yml.
type Config struct {
	// Endpoint is the base URL of the admin console backend, e.g.
	// http://localhost:8181/admin-console.
	Endpoint string `yaml:"endpoint" koanf:"endpoint"`
	// Language is the hl tag attached to every request when set.
	Language string `yaml:"language" koanf:"language"`
	// Username is the fixed admin account for this deployment.
	Username string `yaml:"username" koanf:"username"`
	// TimeoutMS bounds mutating calls, in milliseconds.
	TimeoutMS int `yaml:"timeout_ms" koanf:"timeout_ms"`
	// StateDir holds the session store; empty means ~/.sitemapctl.
	StateDir string `yaml:"state_dir" koanf:"state_dir"`
	// Stub holds settings for the development stub backend.
	Stub StubConfig `yaml:"stub" koanf:"stub"`
}

// StubConfig configures `sitemapctl stub`, the local fake backend.
type StubConfig struct {
	Port     int    `yaml:"port" koanf:"port"`
	DataDir  string `yaml:"data_dir" koanf:"data_dir"`
	Password string `yaml:"password" koanf:"password"`
	AllowAll bool   `yaml:"allow_all" koanf:"allow_all"`
}
