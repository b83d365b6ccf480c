package config

// DBConfig contains PostgreSQL connection settings.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"licensure"`
	Password string `env:"PASSWORD" envDefault:"licensure"`
	Name     string `env:"NAME"     envDefault:"licensure"`
	SSLMode  string `env:"SSLMODE"  envDefault:"disable"`

	// RunMigrationsOnStart applies pending schema migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis connection settings, supporting standalone,
// sentinel, and cluster modes.
type RedisConfig struct {
	URI      string `env:"URI" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`

	SentinelPort       string   `env:"SENTINEL_PORT" envDefault:"26379"`
	SentinelNodes      []string `env:"SENTINEL_NODES" envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"`
	UseSentinel        bool     `env:"USE_SENTINEL" envDefault:"false"`

	ClusterNodes []string `env:"CLUSTER_NODES" envSeparator:","`
	UseCluster   bool     `env:"USE_CLUSTER" envDefault:"false"`
}
