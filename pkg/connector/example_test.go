package connector_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"

	// Import connectors to register them
	_ "github.com/ajitpratap0/refinery/pkg/connector/destinations"
	_ "github.com/ajitpratap0/refinery/pkg/connector/sources"
)

// Example reads a CSV file and exports it as JSON via the registry.
func Example() {
	dir, err := os.MkdirTemp("", "connector-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "people.csv")
	if err := os.WriteFile(input, []byte("name,age\nada,36\ngrace,\n"), 0o644); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	src, err := registry.CreateSource("csv", config.NewCSVSourceConfig(input))
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close(ctx)

	ds, err := src.Read(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, f := range ds.Schema.Fields {
		fmt.Printf("%s %s nullable=%v\n", f.Name, f.Type, f.Nullable)
	}

	output := filepath.Join(dir, "people.json")
	dest, err := registry.CreateDestination("json", config.NewDestinationConfig("json", output))
	if err != nil {
		log.Fatal(err)
	}
	if err := dest.Write(ctx, &core.Export{Name: ds.Name, Table: ds.Table}); err != nil {
		log.Fatal(err)
	}

	data, _ := os.ReadFile(output)
	fmt.Println(string(data))
	// Output:
	// name categorical nullable=false
	// age numeric nullable=true
	// [{"age":36,"name":"ada"},{"age":null,"name":"grace"}]
}

// Example_list shows the registered connectors.
func Example_list() {
	fmt.Println(registry.ListSources())
	fmt.Println(registry.ListDestinations())
	// Output:
	// [csv sql]
	// [arrow csv json xlsx]
}
