package membership

import (
	"errors"

	"go.uber.org/zap"
)

type Config struct {
	Logger   *zap.Logger
	NodeName string
	BindAddr string
	BindPort int
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil Config")
	}
	if c.Logger == nil {
		return errors.New("nil Logger")
	}
	if c.NodeName == "" {
		return errors.New("empty NodeName")
	}
	if c.BindPort < 0 || c.BindPort > 65535 {
		return errors.New("invalid BindPort")
	}
	return nil
}
