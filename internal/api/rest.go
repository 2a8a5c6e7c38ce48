package api

import (
	"net/http"

	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	indentationChar = "  "
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

func CreateRestService(fanController controller.FanController) *echo.Echo {
	echoRest := echo.New()
	echoRest.HideBanner = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())

	echoRest.Use(middleware.Logger())
	echoRest.Use(middleware.Recover())

	echoRest.GET("/alive/", isAlive)

	registerStatusEndpoint(echoRest, fanController)
	registerSensorEndpoints(echoRest, fanController)
	registerOverrideEndpoints(echoRest, fanController)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return the error message of an error
func returnError(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusBadRequest, &Result{
		Name:    "Bad Request",
		Message: e.Error(),
	}, indentationChar)
}
