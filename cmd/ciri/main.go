// Command ciri validates, serializes and deserializes JSON/YAML/TOML
// documents against schemas declared in definition files.
//
// Usage:
//
//	ciri validate    -d defs.yaml -s Person input.json
//	ciri serialize   -d defs.yaml -s Person input.yaml --diff -o yaml
//	ciri deserialize -d defs.yaml -s Person input.toml
//	ciri jsonschema  -d defs.yaml -s Person
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
