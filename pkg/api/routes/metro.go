package routes

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/tyne-and-wear-metro/pkg/coordinator"
	"github.com/travigo/tyne-and-wear-metro/pkg/metro"
)

type stationResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type platformResponse struct {
	Code        string             `json:"code"`
	Description string             `json:"description"`
	Direction   string             `json:"direction,omitempty"`
	Coordinates *metro.Coordinates `json:"coordinates,omitempty"`
}

type platformStateResponse struct {
	Station     string                  `json:"station"`
	Platform    string                  `json:"platform"`
	Description string                  `json:"description"`
	NextTrain   string                  `json:"next_train"`
	Trains      []metro.ArrivalSnapshot `json:"trains"`
	LastUpdate  *time.Time              `json:"last_update"`
}

type metroRoutes struct {
	coordinator *coordinator.Coordinator
}

func MetroRouter(router fiber.Router, c *coordinator.Coordinator) {
	m := &metroRoutes{coordinator: c}

	router.Get("/stations", m.listStations)
	router.Get("/stations/:station/platforms", m.listPlatforms)
	router.Get("/stations/:station/platforms/:platform", m.getPlatform)
	router.Get("/stations/:station/platforms/:platform/next/:offset", m.getNextTrain)

	router.Get("/entities", m.listEntities)
	router.Get("/entities/:id", m.getEntity)

	router.Get("/trains/:trn", m.getTrain)

	router.Get("/which-platform", m.whichPlatform)
}

func (m *metroRoutes) listStations(c *fiber.Ctx) error {
	stations := []stationResponse{}
	for _, station := range m.coordinator.Network().Stations() {
		stations = append(stations, stationResponse{Code: station.Code, Name: station.Name})
	}

	return c.JSON(stations)
}

func (m *metroRoutes) listPlatforms(c *fiber.Ctx) error {
	station, err := m.coordinator.Network().GetStationByCode(stationParam(c))
	if err != nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	platforms := []platformResponse{}
	for _, platform := range station.Platforms() {
		platforms = append(platforms, platformResponse{
			Code:        platform.Code,
			Description: m.coordinator.PlatformDescription(station.Code, platform.Code),
			Direction:   platform.Direction,
			Coordinates: platform.Coordinates,
		})
	}

	return c.JSON(platforms)
}

// getPlatform is the endpoint the consumers poll. Each read keeps the
// platform's subscription alive, and the first read of a platform fetches it
// straight away rather than waiting for the next pass.
func (m *metroRoutes) getPlatform(c *fiber.Ctx) error {
	stationCode := stationParam(c)
	platformCode := c.Params("platform")

	if _, err := m.coordinator.Network().GetPlatform(stationCode, platformCode); err != nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error":      err.Error(),
			"next_train": coordinator.UnknownValue,
		})
	}

	m.coordinator.Touch(stationCode, platformCode)

	if _, refreshed := m.coordinator.LastRefreshedAt(stationCode, platformCode); !refreshed {
		if err := m.coordinator.EnsureFresh(c.UserContext(), stationCode, platformCode); err != nil {
			log.Warn().Err(err).Str("station", stationCode).Str("platform", platformCode).Msg("Initial platform fetch failed")
		}
	}

	response := platformStateResponse{
		Station:     stationCode,
		Platform:    platformCode,
		Description: m.coordinator.PlatformDescription(stationCode, platformCode),
		NextTrain:   m.coordinator.NextTrain(stationCode, platformCode),
		Trains:      m.coordinator.Trains(stationCode, platformCode),
	}
	if at, ok := m.coordinator.LastRefreshedAt(stationCode, platformCode); ok {
		response.LastUpdate = &at
	}

	return c.JSON(response)
}

func (m *metroRoutes) getNextTrain(c *fiber.Ctx) error {
	stationCode := stationParam(c)
	platformCode := c.Params("platform")

	offset, err := strconv.Atoi(c.Params("offset"))
	if err != nil || offset < 0 {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Offset must be a non-negative number",
		})
	}

	if _, err := m.coordinator.Network().GetPlatform(stationCode, platformCode); err == nil {
		m.coordinator.Touch(stationCode, platformCode)
	}

	description, ok := m.coordinator.NextTrainDescription(stationCode, platformCode, offset)
	if !ok {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No train at that position",
		})
	}

	return c.JSON(fiber.Map{
		"description": description,
	})
}

func (m *metroRoutes) listEntities(c *fiber.Ctx) error {
	states := []coordinator.EntityState{}
	for _, entity := range m.coordinator.Entities() {
		states = append(states, m.coordinator.EntityState(entity))
	}

	return c.JSON(states)
}

func (m *metroRoutes) getEntity(c *fiber.Ctx) error {
	entity, ok := m.coordinator.Entity(c.Params("id"))
	if !ok {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find entity",
		})
	}

	return c.JSON(m.coordinator.EntityState(entity))
}

func (m *metroRoutes) getTrain(c *fiber.Ctx) error {
	status, ok := m.coordinator.Train(c.Params("trn"))
	if !ok {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find train matching TRN",
		})
	}

	return c.JSON(status)
}

func (m *metroRoutes) whichPlatform(c *fiber.Ctx) error {
	from := strings.ToUpper(c.Query("from"))
	to := strings.ToUpper(c.Query("to"))

	if from == "" || to == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Both from and to station codes are required",
		})
	}

	platform, err := m.coordinator.Network().WhichPlatform(from, to)
	switch {
	case errors.Is(err, metro.ErrUnknownStation):
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"from":     from,
		"to":       to,
		"platform": platform,
	})
}

func stationParam(c *fiber.Ctx) string {
	return strings.ToUpper(c.Params("station"))
}
