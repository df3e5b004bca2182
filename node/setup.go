package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/client"
	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/internal/childchain"
	"github.com/plasmacash/plasma/internal/store"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/rootchain/sim"
	"github.com/plasmacash/plasma/types"
	"github.com/plasmacash/plasma/version"
)

// MetricsProvider returns the metrics of every component of the node.
type MetricsProvider func() (*childchain.Metrics, *client.Metrics)

// DefaultMetricsProvider returns Prometheus metrics if instrumentation is
// enabled, and no-op metrics otherwise.
func DefaultMetricsProvider(cfg *config.InstrumentationConfig) MetricsProvider {
	return func() (*childchain.Metrics, *client.Metrics) {
		if cfg.Prometheus {
			return childchain.PrometheusMetrics(cfg.Namespace), client.PrometheusMetrics(cfg.Namespace)
		}
		return childchain.NopMetrics(), client.NopMetrics()
	}
}

func initBlockStore(cfg *config.Config, dbProvider config.DBProvider) (*store.BlockStore, dbm.DB, error) {
	db, err := dbProvider(&config.DBContext{ID: "blockstore", Config: cfg})
	if err != nil {
		return nil, nil, err
	}
	return store.NewBlockStore(db), db, nil
}

// checkBlockStore logs what bs holds. It fails when the committed or the
// published checkpoint is missing.
func checkBlockStore(bs *store.BlockStore, logger log.Logger) error {
	height, published := bs.Height(), bs.Published()
	for _, n := range []uint64{height, published} {
		if n > 0 && !bs.HasBlock(n) {
			return fmt.Errorf("block store is missing checkpoint %d", n)
		}
	}
	var checkpoints, deposits int
	for _, n := range bs.BlockNumbers() {
		if types.IsDepositBlock(n) {
			deposits++
		} else {
			checkpoints++
		}
	}
	logger.Info("block store loaded",
		"height", height,
		"published", published,
		"checkpoints", checkpoints,
		"deposits", deposits,
	)
	return nil
}

func createChildChain(
	cfg *config.Config,
	logger log.Logger,
	signer types.Signer,
	bs *store.BlockStore,
	contract *sim.Contract,
	metrics *childchain.Metrics,
) (*childchain.ChildChain, error) {
	opts := []childchain.Option{
		childchain.WithMetrics(metrics),
		childchain.WithBlockCacheSize(cfg.Authority.BlockCacheSize),
	}
	if cfg.Authority.UnsafeSkipSpendChecks {
		logger.Error("spend checks disabled; this chain accepts double spends")
		opts = append(opts, childchain.WithoutSpendChecks())
	}
	cc, err := childchain.New(logger.With("module", "childchain"), signer, bs, contract.Session(signer.Address()), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading child chain: %w", err)
	}
	return cc, nil
}

func logNodeStartupInfo(cfg *config.Config, signer types.Signer, logger log.Logger) {
	logger.Info("version info",
		"version", version.Version,
		"block_protocol", version.BlockProtocol,
	)
	logger.Info("this node is the authority", "addr", signer.Address(), "mode", cfg.Mode)
}

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on addr.
func startPrometheusServer(ctx context.Context, cfg *config.InstrumentationConfig, logger log.Logger) *http.Server {
	srv := &http.Server{
		Addr: cfg.PrometheusListenAddr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: cfg.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	return srv
}
