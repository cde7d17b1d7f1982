package cli

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomesh/cadopt/internal/api"
	"github.com/holomesh/cadopt/internal/app/orchestrator"
	"github.com/holomesh/cadopt/internal/app/strategy"
	"github.com/holomesh/cadopt/internal/config"
	"github.com/holomesh/cadopt/internal/domain"
	"github.com/holomesh/cadopt/internal/infra/cache"
	"github.com/holomesh/cadopt/internal/infra/evaluator"
	"github.com/holomesh/cadopt/internal/infra/holomesh"
	"github.com/holomesh/cadopt/internal/infra/paramspace"
	"github.com/holomesh/cadopt/internal/infra/progressbus"
	"github.com/holomesh/cadopt/internal/infra/similarity"
	"github.com/holomesh/cadopt/internal/infra/taskqueue"
)

var serveConfigFile string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "path to a TOML config file (defaults baked in if omitted)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator daemon: HTTP API, worker pool, and progress bus",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry := registryFromConfig(cfg)

	backend, err := cacheBackend(cfg)
	if err != nil {
		return fmt.Errorf("open cache backend: %w", err)
	}

	bus := progressbus.New()
	db := similarity.New(similarity.Config{
		Threshold:          cfg.Holomesh.Recommendations.SimilarityThreshold,
		MaxRecommendations: cfg.Holomesh.Recommendations.MaxRecommendations,
	})
	eval := evaluator.NewReference(cfg.Evaluator.Seed)
	rng := rand.New(rand.NewSource(cfg.Evaluator.Seed))

	strategies := map[domain.Strategy]strategy.Runner{
		domain.StrategyBayesian:         strategy.NewBayesian(bus),
		domain.StrategyAdvancedBayesian: strategy.NewAdvanced(bus),
		domain.StrategyTransferLearning: strategy.NewTransfer(bus, db),
		domain.StrategyEnsemble:         strategy.NewEnsemble(bus, db, rng),
		domain.StrategySemiAutomatic:    strategy.NewSemiAutomatic(bus, holomesh.ReferenceRecommender{}, rng),
		domain.StrategyManual:           strategy.NewManual(bus, holomesh.ReferenceGuidance{}),
	}

	queueCfg := taskqueue.DefaultConfig()
	if cfg.Queue.Workers > 0 {
		queueCfg.Workers = cfg.Queue.Workers
	}
	// The worker pool's handler exists for externally-enqueued tasks
	// (`task enqueue`): a bare task has no target metrics or strategy
	// choice attached to it yet, so the handler only records it.
	queue := taskqueue.New(queueCfg, func(ctx context.Context, task *domain.Task) (*domain.OptimizeResult, error) {
		log.Printf("[cadoptd] worker picked up externally-queued task %s (tool=%s); no strategy attached, marking processed", task.ID, task.ToolName)
		return &domain.OptimizeResult{Status: "success", ProcessID: task.ID, OptimizedParams: task.Params}, nil
	})

	orch := orchestrator.New(cfg, registry, backend, queue, bus, db, eval, strategies)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	srv := api.NewServer(orch, queue, bus)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[cadoptd] listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("[cadoptd] shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// cacheBackend opens the SQLite-backed cache when cache.sqlite_path is
// configured, falling back to the in-memory backend otherwise.
func cacheBackend(cfg config.Config) (domain.CacheBackend, error) {
	memCfg := cache.Config{
		MaxEntries:    cfg.Cache.MaxEntries,
		EvictionBatch: cfg.Cache.EvictionBatch,
		CachePrefix:   cfg.Cache.CachePrefix,
		DefaultTTL:    cfg.CacheTTL(),
		Now:           time.Now,
	}
	if cfg.Cache.SQLitePath == "" {
		return cache.NewMemory(memCfg), nil
	}
	return cache.OpenSQLite(cfg.Cache.SQLitePath, memCfg)
}

// registryFromConfig builds the parameter-space registry from the
// `tools.*` configuration, inferring a descriptor and interaction-mode
// set per tool the same way paramspace.DefaultRegistry seeds its own
// built-ins. Config is the single source of truth for which modes a tool
// supports; a tool entry here always wins over any hardcoded default.
func registryFromConfig(cfg config.Config) *paramspace.Registry {
	registry := paramspace.NewRegistry()
	for name, tool := range cfg.Tools {
		defaults := make(domain.ParamMap, len(tool.DefaultParameters))
		for paramName, raw := range tool.DefaultParameters {
			defaults[paramName] = valueFromConfig(raw)
		}

		descriptors := make([]domain.Descriptor, 0, len(defaults))
		for paramName, v := range defaults {
			d := paramspace.InferDescriptor(paramName, v)
			if bounds, ok := tool.ParameterRanges[paramName]; ok {
				d.Min, d.Max = bounds[0], bounds[1]
			}
			descriptors = append(descriptors, d)
		}

		modes := make([]domain.InteractionMode, 0, len(tool.SupportedModes))
		for _, m := range tool.SupportedModes {
			modes = append(modes, domain.InteractionMode(m))
		}

		registry.Register(paramspace.ToolDefinition{
			Name:              name,
			Descriptors:       descriptors,
			DefaultParameters: defaults,
			SupportedModes:    modes,
		})
	}
	return registry
}

// valueFromConfig converts a TOML-decoded scalar (int64, float64, bool, or
// string, BurntSushi/toml's native decode types) to a domain.Value.
func valueFromConfig(raw any) domain.Value {
	switch v := raw.(type) {
	case bool:
		return domain.BoolValue(v)
	case int64:
		return domain.IntValue(v)
	case int:
		return domain.IntValue(int64(v))
	case float64:
		return domain.FloatValue(v)
	case string:
		return domain.StringValue(v)
	default:
		return domain.Value{}
	}
}
