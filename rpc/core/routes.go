package core

import (
	"github.com/plasmacash/plasma/rpc/coretypes"
	rpcserver "github.com/plasmacash/plasma/rpc/jsonrpc/server"
)

// RoutesMap maps method names to handlers.
type RoutesMap map[string]*rpcserver.RPCFunc

// GetRoutes returns the child-chain methods. submit_block is only
// exposed when the config marks the RPC as unsafe; the authority
// normally seals blocks on its own timer.
func (env *Environment) GetRoutes() RoutesMap {
	routes := RoutesMap{
		coretypes.MethodBlockNumber:     rpcserver.NewNoArgsRPCFunc(env.BlockNumber),
		coretypes.MethodCurrentBlock:    rpcserver.NewNoArgsRPCFunc(env.CurrentBlock),
		coretypes.MethodBlock:           rpcserver.NewRPCFunc(env.Block),
		coretypes.MethodSendTransaction: rpcserver.NewRPCFunc(env.SendTransaction),
		coretypes.MethodProof:           rpcserver.NewRPCFunc(env.Proof),
		coretypes.MethodTx:              rpcserver.NewRPCFunc(env.Tx),
		coretypes.MethodTxAndProof:      rpcserver.NewRPCFunc(env.TxAndProof),
	}
	if env.Config.Unsafe {
		routes[coretypes.MethodSubmitBlock] = rpcserver.NewNoArgsRPCFunc(env.SubmitBlock)
	}
	return routes
}
