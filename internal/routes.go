package internal

import (
	"net/http"

	"mtad/internal/controllers"
	"mtad/internal/providers"
	"mtad/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/touchpoint", http.HandlerFunc(apiController.ReceiveTouchPoint))
	routers.Post("/conversion", http.HandlerFunc(apiController.ReceiveConversion))
	routers.Get("/report", http.HandlerFunc(apiController.GetReport))
	routers.Get("/funnel", http.HandlerFunc(apiController.GetFunnel))
	routers.Get("/paths", http.HandlerFunc(apiController.GetTopPaths))
	routers.Get("/compare", http.HandlerFunc(apiController.CompareModels))
	routers.Get("/journey", http.HandlerFunc(apiController.GetJourney))
	return routers
}
