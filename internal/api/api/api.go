package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"startlist/cmd/middleware"
	"startlist/internal/service"
)

type Routers struct {
	Service    service.Service
	UploadsDir string
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/api")

	apiGroup.GET("/events", r.Service.ListEvents)
	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.PUT("/events/:id", r.Service.UpdateEvent)
	apiGroup.DELETE("/events/:id", r.Service.DeleteEvent)
	apiGroup.POST("/events/:id/logo", r.Service.UploadEventLogo)

	apiGroup.GET("/users", r.Service.ListUsers)
	apiGroup.POST("/users", r.Service.CreateUser)
	apiGroup.PUT("/users/:id", r.Service.UpdateUser)
	apiGroup.DELETE("/users/:id", r.Service.DeleteUser)
	apiGroup.POST("/users/:id/avatar", r.Service.UploadUserAvatar)

	apiGroup.GET("/registrations", r.Service.ListRegistrations)
	apiGroup.POST("/registrations", r.Service.UpsertRegistration)

	app.Static("/uploads", r.UploadsDir)

	return app
}
