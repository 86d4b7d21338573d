package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/avhost/castnode/internal/api/models"
	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/plan"
	"github.com/avhost/castnode/internal/session"
)

// registerSessionRoutes registers all session lifecycle endpoints
func (s *Server) registerSessionRoutes() {
	// List sessions
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "List Sessions",
		Description: "Get all registered sessions. Listing never acknowledges terminal sessions; use the status endpoint for that.",
		Tags:        []string{"sessions"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.SessionListResponse, error) {
		snaps := s.registry.List()
		sessions := make([]models.SessionData, len(snaps))
		for i, snap := range snaps {
			sessions[i] = snapshotToAPI(snap)
		}
		return &models.SessionListResponse{
			Body: models.SessionListData{
				Sessions: sessions,
				Count:    len(sessions),
			},
		}, nil
	})

	// Start session
	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/sessions",
		Summary:     "Start Session",
		Description: "Resolve a capture device, plan the encoder invocation and spawn it",
		Tags:        []string{"sessions"},
		Errors:      []int{400, 401, 404, 409, 500, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.SessionRequest) (*models.SessionResponse, error) {
		id, err := s.registry.Start(ctx, session.StartRequest{
			SourceID: input.Body.SourceID,
			Kind:     device.Kind(input.Body.Kind),
			AudioID:  input.Body.AudioID,
			Sink:     input.Body.Sink,
			Quality:  plan.Quality(input.Body.Quality),
		})
		if err != nil {
			return nil, s.mapSessionError(err)
		}

		// Look the new session up via List rather than Status: a status
		// read acknowledges terminal sessions, and an encoder that dies
		// within milliseconds must keep its crash record readable by the
		// client, not have it consumed here.
		for _, snap := range s.registry.List() {
			if snap.ID == id {
				return &models.SessionResponse{Body: snapshotToAPI(snap)}, nil
			}
		}
		return nil, huma.Error404NotFound("no active session with this id", nil)
	})

	// Get session status
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session-status",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{session_id}",
		Summary:     "Session Status",
		Description: "Get the current session snapshot. Reading a crashed or terminated session acknowledges it: the entry is removed and its last error is gone with it.",
		Tags:        []string{"sessions"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id" example:"2d9e7f3a-6a0f-4f59-9c30-2b1a4f0e8d11" doc:"Session identifier"`
	}) (*models.SessionResponse, error) {
		id, err := uuid.Parse(input.SessionID)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid session id", err)
		}

		snap, err := s.registry.Status(id)
		if err != nil {
			return nil, s.mapSessionError(err)
		}
		return &models.SessionResponse{Body: snapshotToAPI(snap)}, nil
	})

	// Stop session
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-session",
		Method:      http.MethodDelete,
		Path:        "/api/sessions/{session_id}",
		Summary:     "Stop Session",
		Description: "Gracefully stop a session, escalating to a forced kill if the encoder ignores the signal",
		Tags:        []string{"sessions"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id" example:"2d9e7f3a-6a0f-4f59-9c30-2b1a4f0e8d11" doc:"Session identifier"`
	}) (*struct{}, error) {
		id, err := uuid.Parse(input.SessionID)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid session id", err)
		}

		if err := s.registry.Stop(id); err != nil {
			return nil, s.mapSessionError(err)
		}
		return &struct{}{}, nil
	})
}

// snapshotToAPI converts a session snapshot to API session data
func snapshotToAPI(snap session.Snapshot) models.SessionData {
	return models.SessionData{
		SessionID:    snap.ID.String(),
		SourceKey:    snap.SourceKey,
		Sink:         snap.Sink,
		Quality:      string(snap.Quality),
		State:        snap.State,
		StartedAt:    snap.StartedAt,
		FrameRate:    snap.FrameRate,
		BitrateKbps:  snap.BitrateKbps,
		UsedFallback: snap.UsedFallback,
		LastError:    snap.LastError,
		ExitCode:     snap.ExitCode,
	}
}

// mapSessionError maps domain errors to HTTP errors
func (s *Server) mapSessionError(err error) error {
	var sessErr *session.Error
	if errors.As(err, &sessErr) {
		switch sessErr.Code {
		case session.ErrCodeNoActiveSession:
			return huma.Error404NotFound(sessErr.Message, err)
		case session.ErrCodeUnresolvableDevice:
			return huma.Error404NotFound(sessErr.Message, err)
		case session.ErrCodeAlreadyStreaming:
			return huma.Error409Conflict(sessErr.Message, err)
		case session.ErrCodeInvalidSink:
			return huma.Error400BadRequest(sessErr.Message, err)
		case session.ErrCodeProbeUnavailable:
			return huma.Error503ServiceUnavailable(sessErr.Message, err)
		case session.ErrCodeSpawnFailure:
			return huma.Error500InternalServerError(sessErr.Message, err)
		default:
			return huma.Error500InternalServerError("internal server error", err)
		}
	}
	return huma.Error500InternalServerError("internal server error", err)
}
