package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plasmacash/plasma/libs/log"
)

// RegisterRPCFuncs adds the JSON-RPC handler for all functions in funcMap
// at the root path.
func RegisterRPCFuncs(mux *http.ServeMux, funcMap map[string]*RPCFunc, logger log.Logger) {
	mux.HandleFunc("/", handleInvalidJSONRPCPaths(makeJSONRPCHandler(funcMap, logger)))
}

// RPCFunc is a JSON-RPC method whose parameters decode from a JSON object.
type RPCFunc struct {
	call     func(ctx context.Context, params json.RawMessage) (interface{}, error)
	hasParam bool
}

// NewRPCFunc wraps f, whose argument is decoded from the request params.
func NewRPCFunc[A any, R any](f func(ctx context.Context, arg *A) (R, error)) *RPCFunc {
	return &RPCFunc{
		hasParam: true,
		call: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			arg := new(A)
			if err := decodeParams(params, arg); err != nil {
				return nil, err
			}
			return f(ctx, arg)
		},
	}
}

// NewNoArgsRPCFunc wraps f, which accepts no parameters.
func NewNoArgsRPCFunc[R any](f func(ctx context.Context) (R, error)) *RPCFunc {
	return &RPCFunc{
		call: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			if len(params) != 0 && !bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
				return nil, errInvalidParams{errors.New("method does not take parameters")}
			}
			return f(ctx)
		},
	}
}

// Call invokes the function with the raw params.
func (f *RPCFunc) Call(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return f.call(ctx, params)
}

type errInvalidParams struct{ err error }

func (e errInvalidParams) Error() string { return e.err.Error() }
func (e errInvalidParams) Unwrap() error { return e.err }

// decodeParams parses an object (or null) into arg, rejecting unknown
// fields.
func decodeParams(params json.RawMessage, arg interface{}) error {
	base := bytes.TrimSpace(params)
	if len(base) == 0 || bytes.Equal(base, []byte("null")) {
		return nil
	}
	if !bytes.HasPrefix(base, []byte("{")) {
		return errInvalidParams{errors.New("parameters must be an object")}
	}
	dec := json.NewDecoder(bytes.NewReader(base))
	dec.DisallowUnknownFields()
	if err := dec.Decode(arg); err != nil {
		return errInvalidParams{err}
	}
	return nil
}
