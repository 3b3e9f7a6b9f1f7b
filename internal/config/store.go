package config

// StoreBackend selects where job records live.
type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

type StoreConfig struct {
	Backend StoreBackend
}

func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend: StoreBackend(getEnv("JOB_STORE", string(StoreMemory))),
	}
}
