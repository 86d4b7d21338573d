package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/avhost/castnode/internal/api/models"
	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/probe"
)

// registerDeviceRoutes registers device capability endpoints
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices/{kind}",
		Summary:     "List Devices",
		Description: "Get the capability snapshot for one device kind. Served from cache unless refresh is set or the cache has expired.",
		Tags:        []string{"devices"},
		Errors:      []int{400, 401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Kind    string `path:"kind" enum:"camera,microphone" example:"camera" doc:"Device kind to probe"`
		Refresh bool   `query:"refresh" example:"false" doc:"Force a fresh probe, bypassing the cache"`
	}) (*models.DeviceListResponse, error) {
		kind := device.Kind(input.Kind)
		if !kind.Valid() || kind == device.ScreenRegion {
			return nil, huma.Error400BadRequest("kind must be camera or microphone", nil)
		}

		snap, err := s.prober.Snapshot(ctx, kind, input.Refresh)
		if err != nil {
			if errors.Is(err, probe.ErrProbeUnavailable) {
				return nil, huma.Error503ServiceUnavailable("device capability probe unavailable", err)
			}
			return nil, huma.Error500InternalServerError("probe failed", err)
		}

		devices := make([]models.DeviceCapabilityData, len(snap.Devices))
		for i, dev := range snap.Devices {
			resolutions := make([]models.ResolutionData, len(dev.Resolutions))
			for j, res := range dev.Resolutions {
				resolutions[j] = models.ResolutionData{Width: res.Width, Height: res.Height}
			}
			devices[i] = models.DeviceCapabilityData{
				PlatformID:  dev.Device.PlatformID,
				Index:       dev.Device.CanonicalIndex,
				FrameRates:  dev.FrameRates,
				Resolutions: resolutions,
			}
		}

		return &models.DeviceListResponse{
			Body: models.DeviceListData{
				Kind:       string(snap.Kind),
				Devices:    devices,
				CapturedAt: snap.CapturedAt,
			},
		}, nil
	})
}
