package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/plasmacash/plasma/libs/log"
	rpctypes "github.com/plasmacash/plasma/rpc/jsonrpc/types"
)

// HTTP + JSON handler

// jsonrpc calls grab the given method's function and run it
func makeJSONRPCHandler(funcMap map[string]*RPCFunc, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, hreq *http.Request) {
		if hreq.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "JSON-RPC requires POST", http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(hreq.Body)
		if err != nil {
			writeRPCResponse(w, logger, rpctypes.RPCInvalidRequestError(nil,
				fmt.Errorf("reading request body: %w", err)))
			return
		}

		requests, isBatch, err := parseRequests(b)
		if err != nil {
			writeRPCResponse(w, logger, rpctypes.RPCParseError(
				fmt.Errorf("decoding request: %w", err)))
			return
		}

		var responses []rpctypes.RPCResponse
		for _, req := range requests {
			// Ignore notifications, which this service does not support.
			if req.IsNotification() {
				logger.Debug("Ignoring notification", "req", req)
				continue
			}

			rpcFunc, ok := funcMap[req.Method]
			if !ok {
				responses = append(responses, rpctypes.RPCMethodNotFoundError(req.ID))
				continue
			}

			result, err := rpcFunc.Call(hreq.Context(), req.Params)
			if err != nil {
				responses = append(responses, errorResponse(req, err))
				continue
			}
			responses = append(responses, rpctypes.NewRPCSuccessResponse(req.ID, result))
		}

		if len(responses) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if isBatch {
			writeRPCResponse(w, logger, responses)
			return
		}
		writeRPCResponse(w, logger, responses[0])
	}
}

// errorResponse turns a function error into a response. Functions return
// *rpctypes.RPCError to choose the code.
func errorResponse(req rpctypes.RPCRequest, err error) rpctypes.RPCResponse {
	var perr errInvalidParams
	if errors.As(err, &perr) {
		return rpctypes.RPCInvalidParamsError(req.ID, perr.err)
	}
	var rerr *rpctypes.RPCError
	if errors.As(err, &rerr) {
		return rpctypes.NewRPCErrorResponse(req.ID, rerr.Code, rerr.Message, rerr.Data)
	}
	return rpctypes.RPCServerError(req.ID, err)
}

func handleInvalidJSONRPCPaths(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Since the pattern "/" matches all paths not matched by other registered patterns,
		//  we check whether the path is indeed "/", otherwise return a 404 error
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		next(w, r)
	}
}

// parseRequests parses a JSON-RPC request or request batch from data.
func parseRequests(data []byte) (reqs []rpctypes.RPCRequest, isBatch bool, err error) {
	isBatch = bytes.HasPrefix(bytes.TrimSpace(data), []byte("["))
	if isBatch {
		err = json.Unmarshal(data, &reqs)
	} else {
		reqs = append(reqs, rpctypes.RPCRequest{})
		err = json.Unmarshal(data, &reqs[0])
	}
	if err != nil {
		return nil, false, err
	}
	return reqs, isBatch, nil
}

// writeRPCResponse writes a response or a batch of responses.
func writeRPCResponse(w http.ResponseWriter, logger log.Logger, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode RPC response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Error("failed to write RPC response", "err", err)
	}
}
