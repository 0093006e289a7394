// Package cli provides the shared plumbing of the v2v command-line tool.
//
// This package includes:
//   - Configuration management (contexts)
//   - Output formatting (YAML, JSON, table, raw) with jq filtering
//   - Request file loading (YAML/JSON)
//   - Transcript styles for the terminal
//
// Configuration is stored in ~/.v2v/config.yaml (or $V2V_CONFIG) and
// supports multiple contexts similar to kubectl.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig()
//	ctx, err := cfg.ResolveContext("")
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".[].id",
//	})
package cli
