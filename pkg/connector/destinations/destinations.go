// Package destinations links every export destination into the registry.
// Import it for side effects:
//
//	import _ "github.com/ajitpratap0/refinery/pkg/connector/destinations"
package destinations

import (
	// Import all destination connectors to trigger init() registration
	_ "github.com/ajitpratap0/refinery/pkg/connector/destinations/arrow"
	_ "github.com/ajitpratap0/refinery/pkg/connector/destinations/csv"
	_ "github.com/ajitpratap0/refinery/pkg/connector/destinations/json"
	_ "github.com/ajitpratap0/refinery/pkg/connector/destinations/xlsx"
)

// Formats lists the registered export formats.
var Formats = []string{"arrow", "csv", "json", "xlsx"}
