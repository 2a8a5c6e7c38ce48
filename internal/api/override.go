package api

import (
	"fmt"
	"net/http"

	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/labstack/echo/v4"
)

type overrideRequest struct {
	Duty int `json:"duty"`
}

func registerOverrideEndpoints(rest *echo.Echo, fanController controller.FanController) {
	group := rest.Group("/override")

	group.PUT("/", func(c echo.Context) error {
		return setOverride(c, fanController)
	})
	group.DELETE("/", func(c echo.Context) error {
		return clearOverride(c, fanController)
	})
}

// pins the fan duty to a fixed value until cleared
func setOverride(c echo.Context, fanController controller.FanController) error {
	request := new(overrideRequest)
	if err := c.Bind(request); err != nil {
		return returnError(c, err)
	}
	if request.Duty < 0 || request.Duty > 100 {
		return returnError(c, fmt.Errorf("duty must be in [0, 100], got %d", request.Duty))
	}
	fanController.SetOverride(request.Duty)
	return c.JSONPretty(http.StatusOK, &Result{
		Name:    "Ok",
		Message: fmt.Sprintf("Override set to %d%%", request.Duty),
	}, indentationChar)
}

// returns the control loop to automatic curve evaluation
func clearOverride(c echo.Context, fanController controller.FanController) error {
	fanController.ClearOverride()
	return c.JSONPretty(http.StatusOK, &Result{
		Name:    "Ok",
		Message: "Override cleared",
	}, indentationChar)
}
