// Package output renders rjournal command results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned columns, wide mode for extra fields
//   - json.go: indented JSON
//   - yaml.go: YAML via gopkg.in/yaml.v3
//   - progress.go: record counter bar for bench
//   - spinner.go: animation for long verify runs
//
// Table output is for humans. JSON and YAML are stable for scripting.
package output
