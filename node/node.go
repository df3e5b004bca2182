// Package node assembles a development plasma node: an in-process root
// chain contract, the authority's child chain with its block submitter and
// deposit ingester, the JSON-RPC service and, in participant mode, a coin
// owner guarding its deposits.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jonboulle/clockwork"
	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/client"
	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/crypto"
	"github.com/plasmacash/plasma/internal/childchain"
	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/service"
	"github.com/plasmacash/plasma/privval"
	"github.com/plasmacash/plasma/rootchain"
	"github.com/plasmacash/plasma/rootchain/sim"
	rpchttp "github.com/plasmacash/plasma/rpc/client/http"
	rpccore "github.com/plasmacash/plasma/rpc/core"
	jsonrpcclient "github.com/plasmacash/plasma/rpc/jsonrpc/client"
	"github.com/plasmacash/plasma/types"
)

// Node is the highest level interface to a full plasma node.
// It includes all configuration information and running services.
type Node struct {
	*service.BaseService

	config    *config.Config
	logger    log.Logger
	authority types.Signer

	// services
	contract      *sim.Contract
	db            dbm.DB
	chain         *childchain.ChildChain
	services      *service.Group // contract, deposit ingester, submitter
	rpcEnv        *rpccore.Environment
	rpcListener   net.Listener
	participant   *participant // nil in authority mode
	clientMetrics *client.Metrics

	cancel        context.CancelFunc
	prometheusSrv *http.Server
}

// NewDefault constructs a node from the key files and database backend
// named by cfg.
func NewDefault(ctx context.Context, cfg *config.Config, logger log.Logger) (service.Service, error) {
	pv, err := privval.LoadOrGenFilePV(cfg.Authority.PrivKeyFile())
	if err != nil {
		return nil, fmt.Errorf("loading authority key: %w", err)
	}
	return New(cfg, logger, pv, config.DefaultDBProvider, DefaultMetricsProvider(cfg.Instrumentation))
}

// New returns a node signing blocks with authority. It is not started.
func New(
	cfg *config.Config,
	logger log.Logger,
	authority types.Signer,
	dbProvider config.DBProvider,
	metricsProvider MetricsProvider,
) (*Node, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}

	bs, db, err := initBlockStore(cfg, dbProvider)
	if err != nil {
		return nil, err
	}
	if err := checkBlockStore(bs, logger.With("module", "store")); err != nil {
		_ = db.Close()
		return nil, err
	}
	ccMetrics, clientMetrics := metricsProvider()

	contract := sim.NewContract(logger.With("module", "rootchain"), authority.Address())
	chain, err := createChildChain(cfg, logger, authority, bs, contract, ccMetrics)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	submitter := childchain.NewSubmitter(logger.With("module", "submitter"), chain,
		clockwork.NewRealClock(), cfg.Authority.SubmitPeriod, cfg.Authority.SubmitEmpty)
	ingester := childchain.NewDepositIngester(logger.With("module", "deposits"), chain,
		contract.Session(authority.Address()), cfg.Authority.DepositBuffer)

	n := &Node{
		config:    cfg,
		logger:    logger,
		authority: authority,
		contract:  contract,
		db:        db,
		chain:     chain,
		services:  service.NewGroup(logger, "NodeServices", contract, ingester, submitter),
		rpcEnv: &rpccore.Environment{
			ChildChain: chain,
			Logger:     logger,
			Config:     *cfg.RPC,
		},
		clientMetrics: clientMetrics,
	}
	n.BaseService = service.NewBaseService(logger, "Node", n)
	return n, nil
}

// OnStart starts the node's services.
func (n *Node) OnStart(ctx context.Context) (err error) {
	logNodeStartupInfo(n.config, n.authority, n.logger)
	ctx, n.cancel = context.WithCancel(ctx)
	defer func() {
		// services already started stop with their context
		if err != nil {
			n.cancel()
		}
	}()

	if n.config.Instrumentation.Prometheus && n.config.Instrumentation.PrometheusListenAddr != "" {
		n.prometheusSrv = startPrometheusServer(ctx, n.config.Instrumentation, n.logger)
	}

	if err := n.services.Start(ctx); err != nil {
		return err
	}

	listener, err := n.rpcEnv.StartService(ctx)
	if err != nil {
		return err
	}
	n.rpcListener = listener

	if n.config.Mode == config.ModeParticipant {
		p, err := n.createParticipant()
		if err != nil {
			return err
		}
		if err := p.Start(ctx); err != nil {
			return err
		}
		n.participant = p
	}
	return nil
}

func (n *Node) createParticipant() (*participant, error) {
	cfg := n.config.Participant
	pv, err := privval.LoadOrGenFilePV(cfg.PrivKeyFile())
	if err != nil {
		return nil, fmt.Errorf("loading participant key: %w", err)
	}
	logger := n.logger.With("module", "participant")
	chain, err := rpchttp.New(cfg.ChildChainAddress,
		jsonrpcclient.WithLogger(logger),
		jsonrpcclient.WithRetries(cfg.RPCRetries, cfg.RPCRetryWait),
	)
	if err != nil {
		return nil, err
	}
	c, err := client.New(logger, cfg, pv, chain, n.contract.Session(pv.Address()),
		client.WithMetrics(n.clientMetrics),
		client.WithAuthority(n.authority.Address()),
		client.WithWatcherConfig(n.config.Watcher),
	)
	if err != nil {
		return nil, err
	}
	return newParticipant(logger, c, n.contract.Session(pv.Address()), n.config.Watcher.EventBuffer), nil
}

// OnStop stops the node's services and closes the database.
func (n *Node) OnStop() {
	n.logger.Info("Stopping Node")

	if n.participant != nil {
		if err := n.participant.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
			n.logger.Error("stopping participant", "err", err)
		}
		n.participant.Wait()
	}
	if err := n.services.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		n.logger.Error("stopping services", "err", err)
	}
	n.services.Wait()
	// also shuts down the RPC and Prometheus servers
	n.cancel()

	if err := n.db.Close(); err != nil {
		n.logger.Error("closing database", "err", err)
	}
}

// ChildChain returns the authority's chain.
func (n *Node) ChildChain() *childchain.ChildChain { return n.chain }

// RootChain returns a session of the node's root chain bound to addr.
func (n *Node) RootChain(addr crypto.Address) rootchain.RootChain { return n.contract.Session(addr) }

// Participant returns the node's coin owner, or nil in authority mode.
func (n *Node) Participant() *client.Client {
	if n.participant == nil {
		return nil
	}
	return n.participant.client
}

// RPCAddress returns the address the JSON-RPC service listens on.
func (n *Node) RPCAddress() string {
	if n.rpcListener == nil {
		return ""
	}
	return "http://" + n.rpcListener.Addr().String()
}
