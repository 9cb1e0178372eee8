package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"go.loomcache.dev/loom/ch/segmented"
	"go.loomcache.dev/loom/membership"
	"go.loomcache.dev/loom/spec/topology"
	topologyImpl "go.loomcache.dev/loom/topology"
	"go.loomcache.dev/loom/util/worker"
)

func Generate() *cli.Command {
	return &cli.Command{
		Name:      "coordinator",
		Usage:     "start a cache topology coordinator node",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the coordinator yaml config",
				Required: true,
			},
		},
		Action: run,
	}
}

func run(ctx *cli.Context) error {
	logger := ctx.App.Metadata["logger"].(*zap.Logger)

	cfg, err := loadConfig(ctx.Path("config"))
	if err != nil {
		return err
	}

	cluster, err := membership.New(membership.Config{
		Logger:   logger.With(zap.String("component", "membership")),
		NodeName: cfg.NodeName,
		BindAddr: cfg.BindAddr,
		BindPort: cfg.BindPort,
	})
	if err != nil {
		return err
	}
	defer cluster.Stop()

	pool := worker.NewPool(cfg.Workers)
	defer pool.Stop()

	manager := &topologyImpl.LoopbackManager{
		Logger: logger.With(zap.String("component", "manager")),
	}
	policy, err := topologyImpl.New(topologyImpl.Config{
		Logger:    logger.With(zap.String("component", "policy")),
		Transport: cluster,
		Manager:   manager,
		Executor:  pool,
	})
	if err != nil {
		return err
	}
	manager.Policy = policy

	if err := cluster.Join(cfg.Peers); err != nil {
		return fmt.Errorf("joining cluster: %w", err)
	}
	if err := policy.Start(); err != nil {
		return err
	}
	cluster.Start(policy)

	factory := segmented.New()
	self := topology.Address(cfg.NodeName)
	for _, cache := range cfg.Caches {
		joinInfo := topology.CacheJoinInfo{
			HashFn:      segmented.DefaultHashFn,
			NumOwners:   cache.NumOwners,
			NumSegments: cache.NumSegments,
			Factory:     factory,
		}
		if err := policy.InitCache(cache.Name, joinInfo); err != nil {
			return err
		}
		if _, err := policy.AddJoiners(cache.Name, []topology.Address{self}); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:    cfg.AdminListen,
		Handler: adminRouter(policy),
	}
	go func() {
		logger.Info("Admin endpoint listening", zap.String("addr", cfg.AdminListen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Admin endpoint error", zap.Error(err))
		}
	}()

	<-ctx.Context.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
