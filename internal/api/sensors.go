package api

import (
	"net/http"

	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

func registerSensorEndpoints(rest *echo.Echo, fanController controller.FanController) {
	group := rest.Group("/sensors")

	group.GET("/", func(c echo.Context) error {
		return getSensors(c, fanController)
	})
	group.GET("/:"+urlParamId+"/", func(c echo.Context) error {
		return getSensor(c, fanController)
	})
}

const urlParamId = "id"

// returns all sensor readings from the last successful poll
func getSensors(c echo.Context, fanController controller.FanController) error {
	readings := fanController.Readings()
	data := reprint.This(readings).([]bmc.SensorReading)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

// returns the reading of a single sensor by id
func getSensor(c echo.Context, fanController controller.FanController) error {
	id := c.Param(urlParamId)
	for _, reading := range fanController.Readings() {
		if reading.ID == id {
			data := reprint.This(reading).(bmc.SensorReading)
			return c.JSONPretty(http.StatusOK, data, indentationChar)
		}
	}
	return returnNotFound(c, id)
}

func returnNotFound(c echo.Context, id string) error {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not Found",
		Message: "No sensor with id '" + id + "'",
	}, indentationChar)
}
