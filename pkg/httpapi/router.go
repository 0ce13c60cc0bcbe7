// Package httpapi exposes the mood ledger over a JSON REST API.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/unowned-ai/moodledger/pkg/logger"
	"github.com/unowned-ai/moodledger/pkg/moods"
)

type RouterConfig struct {
	Ledger         *moods.Ledger
	Log            *logger.Logger
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	h := &Handler{ledger: cfg.Ledger, log: log.With("service", "MoodHTTP")}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(CORS(cfg.AllowedOrigins))

	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1")
	{
		patients := api.Group("/patients/:patientId/moods")
		patients.POST("", h.RecordMood)
		patients.POST("/today", h.UpsertToday)
		patients.GET("", h.ListEntries)
		patients.GET("/stats", h.GetStatistics)
		patients.GET("/date/:date", h.GetEntryOn)
		patients.DELETE("", h.DeletePatientEntries)

		entries := api.Group("/moods")
		entries.GET("/:id", h.GetEntryByID)
		entries.PATCH("/:id", h.UpdateEntry)
		entries.DELETE("/:id", h.DeleteEntry)
	}

	return router
}
