package api

import (
	"net/http"

	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

func registerStatusEndpoint(rest *echo.Echo, fanController controller.FanController) {
	group := rest.Group("/status")

	group.GET("/", func(c echo.Context) error {
		return getStatus(c, fanController)
	})
}

// returns a snapshot of the control loop state
func getStatus(c echo.Context, fanController controller.FanController) error {
	snapshot := fanController.Snapshot()
	data := reprint.This(snapshot).(controller.Snapshot)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}
