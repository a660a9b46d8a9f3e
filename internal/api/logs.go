package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/gpioled/internal/api/models"
	"github.com/smazurov/gpioled/internal/logging"
)

// LogsInput filters the log history
type LogsInput struct {
	Module string `query:"module" example:"ledclass" doc:"Only records from this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
	Limit  int    `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Most recent records to return"`
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// logMatcher accepts entries from input.Module at or above input.Level.
func logMatcher(input *LogsInput) func(logging.LogEntry) bool {
	minRank := levelRank[input.Level]
	return func(e logging.LogEntry) bool {
		if input.Module != "" && e.Module != input.Module {
			return false
		}
		return levelRank[e.Level] >= minRank
	}
}

func toLogData(entries []logging.LogEntry) []models.LogEntryData {
	out := make([]models.LogEntryData, len(entries))
	for i, e := range entries {
		out[i] = models.LogEntryData{
			Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Attributes: e.Attributes,
		}
	}
	return out
}

// registerLogRoutes registers the log history endpoint
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Recent log records kept in memory, oldest first",
		Tags:        []string{"system"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, input *LogsInput) (*models.LogsResponse, error) {
		entries := toLogData(logging.History(logMatcher(input), input.Limit))
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})
}
