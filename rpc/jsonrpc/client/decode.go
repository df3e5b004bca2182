package client

import (
	"encoding/json"
	"errors"
	"fmt"

	rpctypes "github.com/plasmacash/plasma/rpc/jsonrpc/types"
)

func unmarshalResponseBytes(responseBytes []byte, expectedID rpctypes.JSONRPCIntID, result interface{}) error {
	response := &rpctypes.RPCResponse{}
	if err := json.Unmarshal(responseBytes, response); err != nil {
		return fmt.Errorf("error unmarshaling: %w", err)
	}

	if response.Error != nil {
		return response.Error
	}

	if err := validateAndVerifyID(response, expectedID); err != nil {
		return fmt.Errorf("wrong ID: %w", err)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(response.Result, result); err != nil {
		return fmt.Errorf("error unmarshaling result: %w", err)
	}
	return nil
}

func validateAndVerifyID(res *rpctypes.RPCResponse, expectedID rpctypes.JSONRPCIntID) error {
	if err := validateResponseID(res.ID); err != nil {
		return err
	}
	if expectedID != res.ID.(rpctypes.JSONRPCIntID) { // validateResponseID ensured res.ID has the right type
		return fmt.Errorf("response ID (%d) does not match request ID (%d)", res.ID, expectedID)
	}
	return nil
}

func validateResponseID(id interface{}) error {
	if id == nil {
		return errors.New("no ID")
	}
	_, ok := id.(rpctypes.JSONRPCIntID)
	if !ok {
		return fmt.Errorf("expected JSONRPCIntID, but got: %T", id)
	}
	return nil
}
