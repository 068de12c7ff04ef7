package routes

import (
	"github.com/gin-gonic/gin"

	"simplist/internal/controller"
	"simplist/internal/middleware"
)

func Router(h *controller.Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())

	// Health for load balancers and K8s probes
	router.GET("/health", controller.Health)
	router.GET("/ready", controller.Ready)

	api := router.Group("/api")
	{
		api.GET("/", h.Welcome)
		api.POST("/lists", h.CreateList)
		api.GET("/lists", h.GetLists)
		api.GET("/lists/:listID", h.GetList)
		api.PATCH("/lists/:listID", h.UpdateList)
		api.POST("/lists/:listID/items", h.AddItem)
		api.PATCH("/lists/:listID/items/:itemID", h.EditItem)
		api.POST("/lists/:listID/items/:itemID/toggle", h.ToggleItem)
		api.DELETE("/lists/:listID/items/:itemID", h.RemoveItem)
	}

	// One realtime channel per list id
	router.GET("/s/lists/:listID", h.Subscribe)

	return router
}
