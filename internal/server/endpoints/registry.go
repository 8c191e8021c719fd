// Package endpoints defines the HTTP API surface. Each endpoint couples
// its route with a CLI command that calls it, registered through the
// shared api.Registry.
package endpoints

import (
	"github.com/labsight/labsight/internal/api"
)

// All returns all endpoints to register with the server.
func All() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&StatusEndpoint{},
		&ParseReportEndpoint{},
		&AnalyzeFoodEndpoint{},
		&WorkoutEndpoint{},
		&NutritionEndpoint{},
		&InterventionsEndpoint{},
	}
}
