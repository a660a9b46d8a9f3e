package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/gpioled/internal/api/models"
	"github.com/smazurov/gpioled/internal/ledclass"
)

// LEDInput identifies an LED by name
type LEDInput struct {
	Name string `path:"name" example:"nuc980::led1" doc:"LED name"`
}

func toLEDData(info ledclass.DeviceInfo) models.LEDData {
	trigger := info.Trigger
	if trigger == "" {
		trigger = ledclass.TriggerNone
	}
	return models.LEDData{
		Name:          info.Name,
		Trigger:       trigger,
		Brightness:    int(info.Brightness),
		MaxBrightness: int(info.MaxBrightness),
		On:            info.Brightness != 0,
	}
}

// registerLEDRoutes registers LED status endpoints
func (s *Server) registerLEDRoutes() {
	if s.options.LEDs == nil {
		s.logger.Debug("LED source not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "list-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "List LEDs",
		Description: "List registered LEDs with their active trigger and brightness",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.LEDListResponse, error) {
		devices := s.options.LEDs.Devices()
		leds := make([]models.LEDData, 0, len(devices))
		for _, info := range devices {
			leds = append(leds, toLEDData(info))
		}
		return &models.LEDListResponse{
			Body: models.LEDListData{
				LEDs:  leds,
				Count: len(leds),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-led",
		Method:      http.MethodGet,
		Path:        "/api/leds/{name}",
		Summary:     "Get LED",
		Description: "Get the state of one LED",
		Tags:        []string{"leds"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *LEDInput) (*models.LEDResponse, error) {
		info, err := s.options.LEDs.Device(input.Name)
		if errors.Is(err, ledclass.ErrNotFound) {
			return nil, huma.Error404NotFound("LED not found", err)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read LED", err)
		}
		return &models.LEDResponse{Body: toLEDData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-triggers",
		Method:      http.MethodGet,
		Path:        "/api/triggers",
		Summary:     "List Triggers",
		Description: "List the trigger names LEDs can use",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.TriggersResponse, error) {
		return &models.TriggersResponse{
			Body: models.TriggersData{Triggers: s.options.LEDs.Triggers()},
		}, nil
	})

	s.logger.Info("LED routes registered")
}
