// schema-generator writes the composed repowatch.yml schema for editors.
//
//	go run ./tools/schema-generator
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/repowatch/cli"
)

func main() {
	outputPath := flag.String("o", filepath.Join("schema", "repowatch.schema.json"), "output file")
	flag.Parse()

	schemaBytes, err := cli.ComposedSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outputPath), 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(*outputPath, append(schemaBytes, '\n'), 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Successfully generated schema at %s", *outputPath)
}
