// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
)

// RegenerateSetup selects what to rebuild.
type RegenerateSetup struct {
	Scope   string `json:"scope" enum:"weekly,daily,all" doc:"Which plan to regenerate" example:"daily"`
	CanalID string `json:"canal_id,omitempty" doc:"Limit regeneration to one channel" example:"05"`
}

type RegenerateRequest struct {
	Body RegenerateSetup `json:"body"`
}

type RegenerateResponse struct {
	Body struct {
		Ok      bool   `json:"ok" doc:"Whether all requested regenerations succeeded"`
		Scope   string `json:"scope" doc:"The regenerated scope"`
		CanalID string `json:"canal_id,omitempty" doc:"Channel limit, if any"`
	}
}

type ScheduleMetaResponse struct {
	Body struct {
		WeeklyGenerated string `json:"weekly_generated" doc:"Timestamp of the last weekly generation"`
		DailyGenerated  string `json:"daily_generated" doc:"Timestamp of the last daily generation"`
	}
}

func createRegenerateHdlr(s *Server) func(ctx context.Context, req *RegenerateRequest) (*RegenerateResponse, error) {
	return func(ctx context.Context, req *RegenerateRequest) (*RegenerateResponse, error) {
		now := time.Now()
		scope := req.Body.Scope
		if scope == "" {
			scope = "all"
		}
		if scope == "weekly" || scope == "all" {
			if err := s.planner.RegenerateWeekly(now, req.Body.CanalID); err != nil {
				return nil, huma.Error500InternalServerError("weekly regeneration failed", err)
			}
		}
		if scope == "daily" || scope == "all" {
			if err := s.planner.RegenerateDaily(ctx, now, req.Body.CanalID); err != nil {
				return nil, huma.Error500InternalServerError("daily regeneration failed", err)
			}
		}
		resp := &RegenerateResponse{}
		resp.Body.Ok = true
		resp.Body.Scope = scope
		resp.Body.CanalID = req.Body.CanalID
		return resp, nil
	}
}

func createScheduleMetaHdlr(s *Server) func(ctx context.Context, _ *struct{}) (*ScheduleMetaResponse, error) {
	return func(ctx context.Context, _ *struct{}) (*ScheduleMetaResponse, error) {
		meta := s.store.ScheduleMeta()
		resp := &ScheduleMetaResponse{}
		resp.Body.WeeklyGenerated = meta.WeeklyGenerated
		resp.Body.DailyGenerated = meta.DailyGenerated
		return resp, nil
	}
}

func createRouteAPI(s *Server) func(r chi.Router) {
	return func(r chi.Router) {
		config := huma.DefaultConfig("RetroTV admin API", "1.0.0")
		config.Servers = []*huma.Server{
			{URL: "/api/admin"},
		}
		config.Info.Description = `Administrative operations on the broadcast schedule:
		force a regeneration of the weekly or daily plan and inspect the
		last generation timestamps.`

		api := humachi.New(r, config)

		huma.Register(api, huma.Operation{
			OperationID:   "regenerate-schedule",
			Method:        http.MethodPost,
			Path:          "/schedule/regenerate",
			Summary:       "Regenerate the weekly and/or daily plan",
			Tags:          []string{"schedule"},
			DefaultStatus: http.StatusOK,
			Errors:        []int{500},
		}, createRegenerateHdlr(s))

		huma.Register(api, huma.Operation{
			OperationID: "get-schedule-meta",
			Method:      http.MethodGet,
			Path:        "/schedule/meta",
			Summary:     "Get the last schedule generation timestamps",
			Tags:        []string{"schedule"},
		}, createScheduleMetaHdlr(s))
	}
}
