// Package sources registers every source connector. Import it for its side
// effects:
//
//	import _ "github.com/ajitpratap0/refinery/pkg/connector/sources"
package sources

import (
	// Import all source connectors to trigger init() registration
	_ "github.com/ajitpratap0/refinery/pkg/connector/sources/csv"
	_ "github.com/ajitpratap0/refinery/pkg/connector/sources/sql"
)
