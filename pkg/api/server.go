// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package api serves the operator console API: JSON-RPC 2.0 over a
// websocket, with state change notifications broadcast to every client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

// Backend is the coordinator surface the API exposes to clients.
type Backend interface {
	Connect(path string, baud int) error
	Disconnect()
	Status() (link.State, string)
	Ports() []string
	SendRaw(data []byte) error
	Snapshot() store.Document
	UpdateTips(tips []wire.TipSetting) error
	UpdateConfiguration(changes map[string]float64) error
	UpdateWorkPosition(setpoint *float64, speedMode *string) error
	UpdateMonitor(m store.Monitor) error
	Jog(button string, pressed bool) error
	SetSpeedMode(mode string) error
	SetWorkPosition() error
}

var jsonRPCErrorParseError = models.ErrorObject{
	Code:    -32700,
	Message: "Parse error",
}
var jsonRPCErrorInvalidRequest = models.ErrorObject{
	Code:    -32600,
	Message: "Invalid Request",
}
var jsonRPCErrorMethodNotFound = models.ErrorObject{
	Code:    -32601,
	Message: "Method not found",
}

func serverError(err error) models.ErrorObject {
	return models.ErrorObject{Code: -32000, Message: err.Error()}
}

func maybeUUID(req models.RequestObject) uuid.UUID {
	if req.ID == nil {
		return uuid.Nil
	}
	return *req.ID
}

func sendResponse(session *melody.Session, id uuid.UUID, result any) error {
	resp := models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return session.Write(data)
}

func sendError(session *melody.Session, id uuid.UUID, errObj models.ErrorObject) error {
	resp := models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal error response: %w", err)
	}
	return session.Write(data)
}

func broadcastNotifications(
	ctx context.Context,
	session *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping notification broadcast")
			return
		case notif := <-notifications:
			params, err := json.Marshal(notif.Params)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification params")
				continue
			}
			req := models.RequestObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  params,
			}
			data, err := json.Marshal(req)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := session.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func handleWSMessage(backend Backend) func(session *melody.Session, msg []byte) {
	return func(session *melody.Session, msg []byte) {
		// ping command for heartbeat operation
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		if !json.Valid(msg) {
			if err := sendError(session, uuid.Nil, jsonRPCErrorParseError); err != nil {
				log.Error().Err(err).Msg("sending error response")
			}
			return
		}

		var req models.RequestObject
		err := json.Unmarshal(msg, &req)
		if err != nil || req.Method == "" {
			if err := sendError(session, maybeUUID(req), jsonRPCErrorInvalidRequest); err != nil {
				log.Error().Err(err).Msg("sending error response")
			}
			return
		}

		if req.JSONRPC != "2.0" {
			log.Error().Str("jsonrpc", req.JSONRPC).Msg("unsupported payload version")
			if err := sendError(session, maybeUUID(req), jsonRPCErrorInvalidRequest); err != nil {
				log.Error().Err(err).Msg("sending error response")
			}
			return
		}

		if req.ID == nil {
			log.Info().Interface("req", req).Msg("received notification, ignoring")
			return
		}

		fn, ok := methodMap[req.Method]
		if !ok {
			if err := sendError(session, *req.ID, jsonRPCErrorMethodNotFound); err != nil {
				log.Error().Err(err).Msg("sending error response")
			}
			return
		}

		log.Debug().Str("method", req.Method).Msg("handling request")
		result, err := fn(requestEnv{
			Backend: backend,
			ID:      *req.ID,
			Params:  req.Params,
		})
		if err != nil {
			if err := sendError(session, *req.ID, serverError(err)); err != nil {
				log.Error().Err(err).Msg("sending error response")
			}
			return
		}

		if err := sendResponse(session, *req.ID, result); err != nil {
			log.Error().Err(err).Msg("sending response")
		}
	}
}

// Start serves the API on addr until ctx is cancelled.
func Start(
	ctx context.Context,
	addr string,
	backend Backend,
	notifications <-chan models.Notification,
) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	session := melody.New()
	session.Upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	go broadcastNotifications(ctx, session, notifications)

	r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	session.HandleMessage(handleWSMessage(backend))

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutting down http server")
		}
	}()

	log.Info().Str("addr", addr).Msg("api server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}
