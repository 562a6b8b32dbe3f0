// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package natsbridge carries status requests to off-chain oracles and their
// verdicts back over NATS.
package natsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/surety/vms/suretyvm/oracle"
	"github.com/luxfi/surety/vms/suretyvm/types"
)

var (
	errNotConnected     = errors.New("not connected")
	errAlreadyListening = errors.New("already subscribed to responses")
)

// Config holds the broker address and subjects.
type Config struct {
	URL             string        `json:"url"`
	Name            string        `json:"name"`
	RequestSubject  string        `json:"requestSubject"`
	ResponseSubject string        `json:"responseSubject"`
	ReconnectWait   time.Duration `json:"reconnectWait"`
	MaxReconnects   int           `json:"maxReconnects"`
	ConnectTimeout  time.Duration `json:"connectTimeout"`
}

// RequestMessage is published for every opened status request.
type RequestMessage struct {
	RequestID string `json:"requestID"`
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Departure uint64 `json:"departure"`
	OpenedAt  uint64 `json:"openedAt"`
}

// ResponseMessage is an oracle verdict for a request.
type ResponseMessage struct {
	RequestID string `json:"requestID"`
	Oracle    string `json:"oracle"`
	Status    uint8  `json:"status"`
}

// Responder applies oracle verdicts.
type Responder interface {
	SubmitOracleResponse(ctx context.Context, oracleAddr ids.ShortID, requestID ids.ID, code types.StatusCode) (*oracle.Resolution, error)
}

// Bridge implements oracle.Dispatcher on top of a NATS connection.
type Bridge struct {
	conn *nats.Conn
	cfg  Config
	log  log.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// Connect dials the broker.
func Connect(cfg Config, logger log.Logger) (*Bridge, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("oracle broker disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("oracle broker reconnected", "url", nc.ConnectedUrl())
		}),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newBridge(conn, cfg, logger), nil
}

func newBridge(conn *nats.Conn, cfg Config, logger log.Logger) *Bridge {
	return &Bridge{
		conn: conn,
		cfg:  cfg,
		log:  logger,
	}
}

// Dispatch publishes req on the request subject.
func (b *Bridge) Dispatch(_ context.Context, req *types.StatusRequest) error {
	if b.conn == nil {
		return errNotConnected
	}
	payload, err := json.Marshal(newRequestMessage(req))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return b.conn.Publish(b.cfg.RequestSubject, payload)
}

// Subscribe delivers verdicts from the response subject to responder.
func (b *Bridge) Subscribe(responder Responder) error {
	if b.conn == nil {
		return errNotConnected
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		return errAlreadyListening
	}
	sub, err := b.conn.Subscribe(b.cfg.ResponseSubject, func(msg *nats.Msg) {
		b.handle(responder, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	b.sub = sub
	return nil
}

// Connected reports whether the broker connection is up.
func (b *Bridge) Connected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains the subscription and closes the connection.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	var err error
	if b.sub != nil {
		err = b.sub.Unsubscribe()
		b.sub = nil
	}
	b.conn.Close()
	return err
}

// handle applies one verdict. Malformed or rejected messages are logged and
// dropped; a reply subject, if present, receives the outcome.
func (b *Bridge) handle(responder Responder, msg *nats.Msg) {
	oracleAddr, requestID, code, err := decodeResponse(msg.Data)
	if err != nil {
		b.log.Warn("dropping malformed oracle response",
			"subject", msg.Subject,
			"error", err,
		)
		b.reply(msg, err)
		return
	}

	res, err := responder.SubmitOracleResponse(context.Background(), oracleAddr, requestID, code)
	if err != nil {
		b.log.Warn("oracle response rejected",
			"requestID", requestID,
			"oracle", oracleAddr,
			"error", err,
		)
		b.reply(msg, err)
		return
	}
	b.log.Debug("oracle response applied",
		"requestID", requestID,
		"credited", len(res.Credited),
	)
	b.reply(msg, nil)
}

func (b *Bridge) reply(msg *nats.Msg, err error) {
	if msg.Reply == "" || b.conn == nil {
		return
	}
	body := "ok"
	if err != nil {
		body = types.KindOf(err).String()
	}
	if pubErr := b.conn.Publish(msg.Reply, []byte(body)); pubErr != nil {
		b.log.Warn("failed to reply to oracle", "error", pubErr)
	}
}

func newRequestMessage(req *types.StatusRequest) RequestMessage {
	return RequestMessage{
		RequestID: req.ID.String(),
		Airline:   req.Flight.Airline.String(),
		Flight:    req.Flight.Code,
		Departure: req.Flight.Departure,
		OpenedAt:  req.OpenedAt,
	}
}

func decodeResponse(data []byte) (ids.ShortID, ids.ID, types.StatusCode, error) {
	var resp ResponseMessage
	if err := json.Unmarshal(data, &resp); err != nil {
		return ids.ShortEmpty, ids.Empty, 0, fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	oracleAddr, err := ids.ShortFromString(resp.Oracle)
	if err != nil {
		return ids.ShortEmpty, ids.Empty, 0, fmt.Errorf("%w: oracle: %w", types.ErrInvalidArgument, err)
	}
	requestID, err := ids.FromString(resp.RequestID)
	if err != nil {
		return ids.ShortEmpty, ids.Empty, 0, fmt.Errorf("%w: request: %w", types.ErrInvalidArgument, err)
	}
	return oracleAddr, requestID, types.StatusCode(resp.Status), nil
}
