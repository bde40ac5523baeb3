package panel

import (
	"encoding/json"

	"github.com/jmcleod/visaexpress/controller"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// listingView is the data of the users and dashboard views.
type listingView struct {
	Loaded  bool
	Records []controller.Record
	Raw     json.RawMessage
}

// resultView is the data of the result view.
type resultView struct {
	ID     string
	Found  bool
	Record controller.Record
}
