package models

// LEDData describes one registered LED.
type LEDData struct {
	Name          string `json:"name" example:"nuc980::led1" doc:"LED name"`
	Trigger       string `json:"trigger" example:"heartbeat" doc:"Active trigger, none when untriggered"`
	Brightness    int    `json:"brightness" example:"255" doc:"Last brightness written"`
	MaxBrightness int    `json:"max_brightness" example:"255" doc:"Maximum brightness"`
	On            bool   `json:"on" example:"true" doc:"Whether the GPIO line is driven high"`
}

// LEDListData represents the response data for LED enumeration
type LEDListData struct {
	LEDs  []LEDData `json:"leds" doc:"Registered LEDs"`
	Count int       `json:"count" example:"1" doc:"Number of registered LEDs"`
}

// LEDListResponse represents the HTTP response for LED enumeration
type LEDListResponse struct {
	Body LEDListData
}

// LEDResponse represents the HTTP response for a single LED
type LEDResponse struct {
	Body LEDData
}

// TriggersData lists the available triggers
type TriggersData struct {
	Triggers []string `json:"triggers" example:"[\"none\",\"heartbeat\"]" doc:"Available trigger names"`
}

// TriggersResponse represents the HTTP response for trigger enumeration
type TriggersResponse struct {
	Body TriggersData
}

// HealthData represents health check response data
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Body HealthData
}

// VersionData represents version information
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	Modified  bool   `json:"modified" doc:"Built from a tree with uncommitted changes"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm" doc:"OS/architecture"`
}

// VersionResponse represents the version endpoint response
type VersionResponse struct {
	Body VersionData
}

// LogEntryData is one retained log record
type LogEntryData struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"Record time"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"ledclass" doc:"Emitting module"`
	Message    string         `json:"message" example:"LED registered" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// LogsData lists recent log records, oldest first
type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Log records"`
	Count   int            `json:"count" example:"20" doc:"Number of records returned"`
}

// LogsResponse represents the HTTP response for the log history
type LogsResponse struct {
	Body LogsData
}
