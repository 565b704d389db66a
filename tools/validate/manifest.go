//go:build validate_manifest
// +build validate_manifest

package main

import (
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// main validates a capability manifest JSON document against a JSON schema.
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: go run -tags=validate_manifest ./tools/validate/manifest.go <schema.json> <manifest.json>\n")
		os.Exit(1)
	}

	schemaFile := os.Args[1]
	dataFile := os.Args[2]

	schemaBytes, err := os.ReadFile(schemaFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading schema file: %v\n", err)
		os.Exit(1)
	}

	dataBytes, err := os.ReadFile(dataFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading manifest file: %v\n", err)
		os.Exit(1)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewBytesLoader(dataBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error validating manifest: %v\n", err)
		os.Exit(1)
	}

	if !result.Valid() {
		fmt.Fprintf(os.Stderr, "Manifest is invalid:\n")
		for _, desc := range result.Errors() {
			fmt.Fprintf(os.Stderr, "  - %s\n", desc)
		}
		os.Exit(1)
	}

	fmt.Println("Manifest is valid.")
}
