package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classgrid-api/internal/middleware"
)

// RegisterScheduleRoutes mounts the authenticated scheduler endpoints on a
// /schedules group. The signed export download is mounted separately since
// it carries its own authorisation.
func RegisterScheduleRoutes(group *gin.RouterGroup, h *ScheduleGeneratorHandler) {
	read := middleware.CanRead()
	write := middleware.CanSchedule()

	group.POST("/generate", write, h.Generate)
	group.GET("/proposals/:id", read, h.Proposal)
	group.POST("/proposals/:id/optimize", write, h.Optimize)
	group.POST("/proposals/:id/export", write, h.Export)
	group.POST("/save", write, h.Save)
	group.GET("/runs", read, h.Runs)
	group.GET("/runs/:id/assignments", read, h.Assignments)
	group.DELETE("/runs/:id", write, h.Delete)
	group.GET("/jobs/:id", read, h.Job)
}
