package mocks

import (
	"github.com/stretchr/testify/mock"

	"go.loomcache.dev/loom/spec/topology"
)

type Transport struct {
	mock.Mock
}

var _ topology.Transport = (*Transport)(nil)

func (t *Transport) GetMembers() []topology.Address {
	args := t.Called()
	v := args.Get(0)
	if v == nil {
		return nil
	}
	return v.([]topology.Address)
}
