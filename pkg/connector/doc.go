// Package connector moves tables in and out of refinery.
//
// # Architecture Overview
//
// The connector package is organized into several sub-packages:
//
//   - core: Defines the Source and Destination interfaces, the Dataset a
//     source produces and the Export a destination consumes.
//
//   - registry: Implements a factory pattern for connector discovery and
//     instantiation. Connectors self-register in init.
//
//   - sources: CSV files (optionally compressed) and SQL queries against
//     SQLite, PostgreSQL or MySQL. Column kinds are inferred on load.
//
//   - destinations: CSV, JSON, XLSX and Arrow IPC exports. Every output
//     stream can be compressed; XLSX also carries the session history.
//
//   - base: Helpers shared by connectors, such as the retry policy used
//     when connecting to a database.
//
// # Example Usage
//
//	import (
//		_ "github.com/ajitpratap0/refinery/pkg/connector/destinations"
//		_ "github.com/ajitpratap0/refinery/pkg/connector/sources"
//	)
//
//	src, err := registry.CreateSource("csv", config.NewCSVSourceConfig("data.csv"))
//	if err != nil {
//		return err
//	}
//	defer src.Close(ctx)
//
//	ds, err := src.Read(ctx)
//	if err != nil {
//		return err
//	}
//
//	dest, err := registry.CreateDestination("json", config.NewDestinationConfig("json", "out.json"))
//	if err != nil {
//		return err
//	}
//	err = dest.Write(ctx, &core.Export{Name: ds.Name, Table: ds.Table})
package connector
