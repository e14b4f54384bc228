package handler

import (
	"context"
	"log"
	"time"

	"snapconnect_agents/service"
	"snapconnect_agents/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RunHandler 运行管理接口
type RunHandler struct {
	runner   *service.RunnerService
	personas *service.PersonaService
}

func NewRunHandler(runner *service.RunnerService, personas *service.PersonaService) *RunHandler {
	return &RunHandler{runner: runner, personas: personas}
}

// TriggerRunRequest 触发运行的请求体；所有字段可选，缺省用服务端配置
type TriggerRunRequest struct {
	PersonaIDs  []string `json:"persona_ids"`
	DryRun      bool     `json:"dry_run"`
	BatchSize   int      `json:"batch_size"`
	RunBudget   int      `json:"run_budget"`
	ContentType string   `json:"content_type"`
}

// TriggerRun POST /api/v1/runs
// 异步触发一轮运行；已有运行在跑时返回 409。结果通过 GET /runs/latest 查询，
// 过程事件走 /ws 活动流
func (h *RunHandler) TriggerRun(c *gin.Context) {
	var req TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid request body")
		return
	}

	if h.runner.Running() {
		utils.Conflict(c, "a run is already in progress")
		return
	}

	opts := service.RunOptions{
		DryRun:      req.DryRun,
		BatchSize:   req.BatchSize,
		RunBudget:   req.RunBudget,
		ContentType: req.ContentType,
	}
	for _, raw := range req.PersonaIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequest(c, "invalid persona id: "+raw)
			return
		}
		opts.PersonaIDs = append(opts.PersonaIDs, id)
	}

	go func() {
		// 触发式运行给一个宽松的总超时兜底
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := h.runner.Run(ctx, opts); err != nil {
			log.Printf("[ERROR] triggered run failed: %v", err)
		}
	}()

	utils.AcceptedResponse(c, "run started")
}

// LatestSummary GET /api/v1/runs/latest
func (h *RunHandler) LatestSummary(c *gin.Context) {
	summary := h.runner.LastSummary()
	if summary == nil {
		utils.NotFound(c, "no run has completed yet")
		return
	}
	utils.SuccessResponse(c, summary)
}

// ListPersonas GET /api/v1/personas
func (h *RunHandler) ListPersonas(c *gin.Context) {
	personas, err := h.personas.List(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.SuccessResponse(c, personas)
}
