// Package core exposes the child chain over JSON-RPC.
package core

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rs/cors"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/internal/childchain"
	"github.com/plasmacash/plasma/libs/log"
	rpcserver "github.com/plasmacash/plasma/rpc/jsonrpc/server"
	rpctypes "github.com/plasmacash/plasma/rpc/jsonrpc/types"
	"github.com/plasmacash/plasma/types"
)

// Environment contains the objects the RPC methods need.
type Environment struct {
	ChildChain *childchain.ChildChain
	Logger     log.Logger
	Config     config.RPCConfig
}

// Handler returns the JSON-RPC handler, wrapped in CORS if configured.
func (env *Environment) Handler() http.Handler {
	mux := http.NewServeMux()
	rpcLogger := env.Logger.With("module", "rpc-server")
	rpcserver.RegisterRPCFuncs(mux, env.GetRoutes(), rpcLogger)

	var rootHandler http.Handler = mux
	if env.Config.IsCorsEnabled() {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: env.Config.CORSAllowedOrigins,
			AllowedMethods: env.Config.CORSAllowedMethods,
			AllowedHeaders: env.Config.CORSAllowedHeaders,
		})
		rootHandler = corsMiddleware.Handler(mux)
	}
	return rootHandler
}

// StartService listens on the configured address and serves until ctx
// ends.
func (env *Environment) StartService(ctx context.Context) (net.Listener, error) {
	cfg := rpcserver.DefaultConfig()
	cfg.MaxBodyBytes = env.Config.MaxBodyBytes
	cfg.MaxHeaderBytes = env.Config.MaxHeaderBytes
	cfg.MaxOpenConnections = env.Config.MaxOpenConnections
	if env.Config.TimeoutRead > 0 {
		cfg.ReadTimeout = env.Config.TimeoutRead
		cfg.WriteTimeout = env.Config.TimeoutRead
	}

	listener, err := rpcserver.Listen(env.Config.ListenAddress, cfg.MaxOpenConnections)
	if err != nil {
		return nil, err
	}

	rpcLogger := env.Logger.With("module", "rpc-server")
	handler := env.Handler()
	go func() {
		if err := rpcserver.Serve(ctx, listener, handler, rpcLogger, cfg); err != nil {
			env.Logger.Error("error serving server", "err", err)
		}
	}()
	return listener, nil
}

// rpcError assigns a JSON-RPC code to a child-chain error.
func rpcError(err error) error {
	if code, ok := types.ValidationCode(err); ok {
		return &rpctypes.RPCError{Code: rpctypes.CodeValidationError, Message: err.Error(), Data: code}
	}
	switch {
	case errors.Is(err, types.ErrBlockNotFound):
		return &rpctypes.RPCError{Code: rpctypes.CodeNotFound, Message: "Not found", Data: err.Error()}
	case errors.Is(err, types.ErrMalformedEncoding):
		return &rpctypes.RPCError{Code: rpctypes.CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	return err
}
