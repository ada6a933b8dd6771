package ingest

// Result holds the outcome of an import run.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	LogsInserted     int `json:"logs_inserted"`

	SetsReceived   int `json:"sets_received"`
	SetsInserted   int `json:"sets_inserted"`
	WarmupsSkipped int `json:"warmups_skipped"`
	SetsDropped    int `json:"sets_dropped"`

	Message string `json:"message,omitempty"`
}
