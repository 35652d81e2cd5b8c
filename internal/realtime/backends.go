package realtime

import (
	"fmt"

	"relay-chat/config"
)

// BackendFactory builds a Broker from application config.
type BackendFactory func(cfg *config.Config) (Broker, error)

// Backends is the strategy map of supported pub/sub backends, keyed by
// the RT_BACKEND config value.
var Backends = map[string]BackendFactory{
	"redis": func(cfg *config.Config) (Broker, error) {
		return NewRedisBroker(RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		}), nil
	},
	"nats": func(cfg *config.Config) (Broker, error) {
		return NewNATSBroker(NATSConfig{URL: cfg.NATSURL})
	},
}

// OpenBackend resolves the named backend from the strategy map.
func OpenBackend(name string, cfg *config.Config) (Broker, error) {
	factory, ok := Backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown realtime backend %q", name)
	}
	return factory(cfg)
}
