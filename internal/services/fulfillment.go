package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/directory"
	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/util"

	"go.uber.org/zap"
)

const (
	driverOpQuery  = "query"
	driverOpAction = "action"
	statusTimeout  = "timeout"
)

// ErrUserNotFound is returned by SYNC when the authenticated user has no
// record. Authentication and the user records have diverged.
var ErrUserNotFound = directory.ErrUserNotFound

// DeviceDirectory resolves devices and their drivers.
type DeviceDirectory interface {
	ListForUser(userID string) ([]models.DeviceDescriptor, error)
	DriverFor(deviceID string) (core.Driver, error)
	DriverType(deviceID string) string
}

// TokenRevoker revokes access tokens on DISCONNECT.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, token string) error
}

// FulfillmentService dispatches the intents of a fulfillment request.
type FulfillmentService struct {
	devices       DeviceDirectory
	tokens        TokenRevoker
	audit         *AuditService
	metrics       core.Recorder
	log           *zap.Logger
	driverTimeout time.Duration
}

func NewFulfillmentService(
	devices DeviceDirectory,
	tokens TokenRevoker,
	audit *AuditService,
	m core.Recorder,
	log *zap.Logger,
	driverTimeout time.Duration,
) *FulfillmentService {
	return &FulfillmentService{
		devices:       devices,
		tokens:        tokens,
		audit:         audit,
		metrics:       m,
		log:           log,
		driverTimeout: driverTimeout,
	}
}

// Handle runs every intent of req for userID and merges their payloads.
// token is the bearer token that authenticated the request; DISCONNECT
// revokes it and ends the batch with an empty response.
//
// Once started, the batch runs to completion even if the caller goes away:
// ctx is detached from cancellation and only per-driver timeouts apply.
func (s *FulfillmentService) Handle(
	ctx context.Context,
	userID, token string,
	req *models.FulfillmentRequest,
) (*models.FulfillmentResponse, error) {
	ctx = context.WithoutCancel(ctx)
	log := s.log.With(
		logger.RemoteAddr(util.GetIPFromContext(ctx)),
		logger.User(userID),
		logger.RequestID(req.RequestID),
	)

	resp := &models.FulfillmentResponse{
		RequestID: req.RequestID,
		Payload:   map[string]any{},
	}

	for _, input := range req.Inputs {
		start := time.Now()
		var (
			payload map[string]any
			err     error
		)

		switch input.Intent {
		case models.IntentSync:
			payload, err = s.sync(userID)
		case models.IntentQuery:
			payload, err = s.query(ctx, log, input.Payload)
		case models.IntentExecute:
			payload, err = s.execute(ctx, log, userID, input.Payload)
		case models.IntentDisconnect:
			s.disconnect(ctx, log, token)
			s.metrics.RecordIntent(input.Intent, true, time.Since(start))
			return models.EmptyFulfillmentResponse(), nil
		default:
			log.Debug("ignoring unknown intent", logger.Intent(input.Intent))
			continue
		}

		s.metrics.RecordIntent(input.Intent, err == nil, time.Since(start))
		if err != nil {
			log.Error("intent failed", logger.Intent(input.Intent), zap.Error(err))
			s.audit.Log(ctx, AuditLogEntry{
				EventType:    models.EventFulfillmentRejected,
				Severity:     models.SeverityError,
				ActorUserID:  userID,
				ResourceType: models.ResourceRequest,
				ResourceID:   req.RequestID,
				Action:       "Fulfillment intent failed",
				Details:      models.AuditDetails{"intent": input.Intent},
				Success:      false,
				ErrorMessage: err.Error(),
			})
			return nil, err
		}
		maps.Copy(resp.Payload, payload)
	}

	return resp, nil
}

func (s *FulfillmentService) sync(userID string) (map[string]any, error) {
	devices, err := s.devices.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("sync devices of %s: %w", userID, err)
	}
	return map[string]any{
		"agentUserId": userID,
		"devices":     devices,
	}, nil
}

func (s *FulfillmentService) query(
	ctx context.Context,
	log *zap.Logger,
	raw json.RawMessage,
) (map[string]any, error) {
	var p models.QueryPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}

	states := make(map[string]any, len(p.Devices))
	for _, ref := range p.Devices {
		states[ref.ID] = s.queryDevice(ctx, log.With(logger.DeviceID(ref.ID)), ref)
	}
	return map[string]any{"devices": states}, nil
}

func (s *FulfillmentService) queryDevice(
	ctx context.Context,
	log *zap.Logger,
	ref models.DeviceRef,
) models.DeviceState {
	drv, err := s.devices.DriverFor(ref.ID)
	if err != nil {
		log.Warn("query for unknown device")
		return errorState(models.ErrorCodeDeviceNotFound)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.driverTimeout)
	defer cancel()

	start := time.Now()
	state, err := drv.Query(callCtx, ref.CustomData)
	s.metrics.RecordDriverCall(s.devices.DriverType(ref.ID), driverOpQuery,
		driverStatus(err, models.StatusSuccess), time.Since(start))
	if err != nil {
		log.Warn("device query failed", zap.Error(err))
		return errorState(models.ErrorCodeDeviceOffline)
	}
	if state == nil {
		state = models.DeviceState{}
	}
	return state
}

func (s *FulfillmentService) execute(
	ctx context.Context,
	log *zap.Logger,
	userID string,
	raw json.RawMessage,
) (map[string]any, error) {
	var p models.ExecutePayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}

	results := make([]models.CommandResult, 0)
	for _, cmd := range p.Commands {
		for _, ref := range cmd.Devices {
			devLog := log.With(logger.DeviceID(ref.ID))
			for _, exec := range cmd.Execution {
				res := s.executeOne(ctx, devLog, userID, ref, exec)
				results = append(results, models.CommandResult{
					IDs:       []string{ref.ID},
					Status:    res.Status,
					States:    res.States,
					ErrorCode: res.ErrorCode,
				})
			}
		}
	}
	return map[string]any{"commands": results}, nil
}

func (s *FulfillmentService) executeOne(
	ctx context.Context,
	log *zap.Logger,
	userID string,
	ref models.DeviceRef,
	exec models.Execution,
) models.ActionResult {
	res := s.runAction(ctx, log, ref, exec)

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventDeviceCommand,
		Severity:     models.SeverityInfo,
		ActorUserID:  userID,
		ResourceType: models.ResourceDevice,
		ResourceID:   ref.ID,
		Action:       exec.Command,
		Details: models.AuditDetails{
			"params":     exec.Params,
			"status":     res.Status,
			"error_code": res.ErrorCode,
		},
		Success: res.Status == models.StatusSuccess,
	})
	return res
}

func (s *FulfillmentService) runAction(
	ctx context.Context,
	log *zap.Logger,
	ref models.DeviceRef,
	exec models.Execution,
) models.ActionResult {
	drv, err := s.devices.DriverFor(ref.ID)
	if err != nil {
		log.Warn("command for unknown device", zap.String("command", exec.Command))
		return models.ActionResult{Status: models.StatusError, ErrorCode: models.ErrorCodeDeviceNotFound}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.driverTimeout)
	defer cancel()

	start := time.Now()
	res, err := drv.Action(callCtx, ref.CustomData, exec.Command, exec.Params)
	s.metrics.RecordDriverCall(s.devices.DriverType(ref.ID), driverOpAction,
		driverStatus(err, res.Status), time.Since(start))

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("device command timed out", zap.String("command", exec.Command), zap.Error(err))
		return models.ActionResult{Status: models.StatusError, ErrorCode: models.ErrorCodeDeviceOffline}
	case err != nil:
		log.Warn("device command failed", zap.String("command", exec.Command), zap.Error(err))
		return models.ActionResult{Status: models.StatusError, ErrorCode: models.ErrorCodeHardError}
	case res.Status != models.StatusSuccess && res.Status != models.StatusError:
		log.Warn("driver returned unknown status", zap.String("status", res.Status))
		return models.ActionResult{Status: models.StatusError, ErrorCode: models.ErrorCodeHardError}
	}

	log.Info("device command executed",
		zap.String("command", exec.Command),
		zap.String("status", res.Status),
	)
	return res
}

func (s *FulfillmentService) disconnect(ctx context.Context, log *zap.Logger, token string) {
	err := s.tokens.RevokeToken(ctx, token)
	switch {
	case err == nil:
		log.Info("account unlinked")
	case errors.Is(err, ErrTokenNotFound):
		log.Warn("disconnect with an already revoked token")
	default:
		log.Error("failed to revoke token on disconnect", zap.Error(err))
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func errorState(code string) models.DeviceState {
	return models.DeviceState{"status": models.StatusError, "errorCode": code}
}

func driverStatus(err error, status string) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return statusTimeout
	case err != nil:
		return models.StatusError
	}
	return status
}
