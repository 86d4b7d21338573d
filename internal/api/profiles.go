package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/avhost/castnode/internal/api/models"
)

// registerProfileRoutes registers the quality table endpoint
func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/api/profiles",
		Summary:     "List Quality Profiles",
		Description: "Get the current quality table, including any active file overrides",
		Tags:        []string{"profiles"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ProfileListResponse, error) {
		all := s.table.All()

		profiles := make([]models.ProfileData, 0, len(all))
		for quality, p := range all {
			profiles = append(profiles, models.ProfileData{
				Quality:          string(quality),
				BitrateKbps:      p.BitrateKbps,
				MaxBitrateKbps:   p.MaxBitrateKbps,
				BufSizeKbps:      p.BufSizeKbps,
				GOP:              p.GOP,
				Preset:           p.Preset,
				FrameRateCeiling: p.FrameRateCeiling,
			})
		}
		sort.Slice(profiles, func(i, j int) bool {
			return profiles[i].BitrateKbps < profiles[j].BitrateKbps
		})

		return &models.ProfileListResponse{
			Body: models.ProfileListData{Profiles: profiles},
		}, nil
	})
}
