package topology

import (
	"errors"

	"go.uber.org/zap"

	"go.loomcache.dev/loom/spec/topology"
)

type Config struct {
	Logger    *zap.Logger
	Transport topology.Transport
	Manager   topology.ClusterTopologyManager
	Executor  topology.Executor
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil Config")
	}
	if c.Logger == nil {
		return errors.New("nil Logger")
	}
	if c.Transport == nil {
		return errors.New("nil Transport")
	}
	if c.Manager == nil {
		return errors.New("nil Manager")
	}
	if c.Executor == nil {
		return errors.New("nil Executor")
	}
	return nil
}
