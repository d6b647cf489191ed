package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/service-kit/internal/utils"
)

type distanceResponse struct {
	From   [2]float64 `json:"from"`
	To     [2]float64 `json:"to"`
	Meters float64    `json:"meters"`
}

func (s *Server) geoDistance(c echo.Context) error {
	var coords [4]float64
	for i, name := range []string{"lat1", "lon1", "lat2", "lon2"} {
		v, err := strconv.ParseFloat(c.QueryParam(name), 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, name+" must be a number")
		}
		coords[i] = v
	}
	for _, p := range [][2]float64{{coords[0], coords[1]}, {coords[2], coords[3]}} {
		if err := utils.ValidateCoordinates(p[0], p[1]); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	return c.JSON(http.StatusOK, distanceResponse{
		From:   [2]float64{coords[0], coords[1]},
		To:     [2]float64{coords[2], coords[3]},
		Meters: utils.DistanceMeters(coords[0], coords[1], coords[2], coords[3]),
	})
}
