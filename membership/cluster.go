package membership

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"

	"go.loomcache.dev/loom/spec/topology"
	"go.loomcache.dev/loom/util"
)

const (
	maxJoinAttempts = 10
	joinRetryDelay  = time.Second
	leaveTimeout    = time.Second * 5
	eventBacklog    = 256
)

// Cluster is the gossip-backed membership oracle. It satisfies the
// transport contract for the rebalance policy and pushes every view change
// into the policy's members-update path.
type Cluster struct {
	logger *zap.Logger
	policy topology.RebalancePolicy
	ml     *memberlist.Memberlist
	events chan memberlist.NodeEvent
	stopCh chan struct{}
	stopWg sync.WaitGroup
}

var _ topology.Transport = (*Cluster)(nil)

func New(conf Config) (*Cluster, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	c := &Cluster{
		logger: conf.Logger,
		events: make(chan memberlist.NodeEvent, eventBacklog),
		stopCh: make(chan struct{}),
	}

	mlConf := memberlist.DefaultLANConfig()
	mlConf.Name = conf.NodeName
	if conf.BindAddr != "" {
		mlConf.BindAddr = conf.BindAddr
	}
	mlConf.BindPort = conf.BindPort
	mlConf.Events = &memberlist.ChannelEventDelegate{Ch: c.events}
	mlConf.Logger = util.GetStdLogger(conf.Logger, "memberlist")

	ml, err := memberlist.Create(mlConf)
	if err != nil {
		return nil, fmt.Errorf("creating memberlist: %w", err)
	}
	c.ml = ml

	return c, nil
}

// Start routes membership events into the policy. Runs after the policy and
// its collaborators are wired; events observed earlier wait in the backlog.
func (c *Cluster) Start(policy topology.RebalancePolicy) {
	c.policy = policy
	c.stopWg.Add(1)
	go c.pumpEvents()
}

// GetMembers returns the live cluster view, ordered by node name so the
// ordering is stable across nodes observing the same view.
func (c *Cluster) GetMembers() []topology.Address {
	nodes := c.ml.Members()
	members := make([]topology.Address, 0, len(nodes))
	for _, n := range nodes {
		members = append(members, topology.Address(n.Name))
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// LocalAddr returns the gossip address other nodes use to reach this node.
func (c *Cluster) LocalAddr() string {
	return c.ml.LocalNode().Address()
}

// Join contacts the given seed nodes, retrying while the seeds come up.
func (c *Cluster) Join(peers []string) error {
	if len(peers) == 0 {
		return nil
	}
	return retry.Do(func() error {
		contacted, err := c.ml.Join(peers)
		if err != nil {
			return err
		}
		c.logger.Info("Joined cluster", zap.Int("contacted", contacted))
		return nil
	},
		retry.Attempts(maxJoinAttempts),
		retry.Delay(joinRetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			c.logger.Warn("Retrying cluster join", zap.Uint("attempt", attempt), zap.Error(err))
		}),
	)
}

func (c *Cluster) pumpEvents() {
	defer c.stopWg.Done()
	for {
		select {
		case ev := <-c.events:
			c.handleEvent(ev)
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cluster) handleEvent(ev memberlist.NodeEvent) {
	switch ev.Event {
	case memberlist.NodeJoin, memberlist.NodeLeave:
		members := c.GetMembers()
		c.logger.Debug("Cluster view changed",
			zap.String("node", ev.Node.Name), zap.Int("members", len(members)))
		if err := c.policy.UpdateMembersList(members); err != nil {
			c.logger.Error("Failed to apply cluster view", zap.Error(err))
		}
	case memberlist.NodeUpdate:
		// metadata change only, ownership is unaffected
	}
}

func (c *Cluster) Stop() {
	close(c.stopCh)
	c.stopWg.Wait()
	if err := c.ml.Leave(leaveTimeout); err != nil {
		c.logger.Warn("Error leaving cluster", zap.Error(err))
	}
	if err := c.ml.Shutdown(); err != nil {
		c.logger.Warn("Error shutting down memberlist", zap.Error(err))
	}
}
