package server

// Request types for WebSocket commands with validation tags.

// MonitorRequest is the request body for monitor/start and monitor/stop.
type MonitorRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=512"`
}

// RouteRequest is the request body for route/provision. Both sources are optional.
type RouteRequest struct {
	SourceA string `json:"source_a" validate:"omitempty,max=512"`
	SourceB string `json:"source_b" validate:"omitempty,max=512,nefield=SourceA"`
}
