// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"

	"github.com/gorilla/rpc/v2"

	"github.com/luxfi/log"
	"github.com/luxfi/utils/json"
)

// ServiceName is the RPC namespace, e.g. "surety.buy".
const ServiceName = "surety"

// NewHandler returns the JSON-RPC endpoint wrapped in bearer-token
// authentication. Without an authenticator every call is anonymous, which
// leaves the service read-only.
func NewHandler(backend Backend, auth *Authenticator, logger log.Logger) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(NewService(backend, logger), ServiceName); err != nil {
		return nil, err
	}
	if auth == nil {
		return server, nil
	}
	return auth.Middleware(server), nil
}
