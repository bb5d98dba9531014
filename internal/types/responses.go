package types

// WSLevelsResponse is pushed periodically with the level of every monitored device.
type WSLevelsResponse struct {
	Type    string         `json:"type"` // "levels"
	Devices []DeviceStatus `json:"devices"`
}

// WSStatusResponse is pushed periodically and after every command.
type WSStatusResponse struct {
	Type            string         `json:"type"` // "status"
	Platform        Platform       `json:"platform"`
	FFmpegAvailable bool           `json:"ffmpeg_available"`
	PactlAvailable  bool           `json:"pactl_available"`
	Devices         []AudioDevice  `json:"devices"`
	Monitors        []DeviceStatus `json:"monitors"`
	Route           string         `json:"route,omitempty"`
	RouteError      string         `json:"route_error,omitempty"`
	Tools           []ToolInfo     `json:"tools"`
}

// WSCommandResult answers a command of type T with type "T_result".
// Error holds a message string or a *ValidationError.
type WSCommandResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// WSRouteResult is the data of a successful route/provision command.
type WSRouteResult struct {
	Device string `json:"device"`
}

// ToolInfo describes a probed external tool.
type ToolInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Version  string `json:"version,omitempty"`
	Outdated bool   `json:"outdated,omitempty"`
}
