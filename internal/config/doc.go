// Package config defines the explicit configuration value passed into every
// component of the adapter: upstream ClickUp endpoints, default list and
// workspace identifiers, the static API token fallback, and the OAuth
// application credentials.
//
// The configuration is assembled once in cmd/serve.go from flags and
// environment variables. Components never consult globals; tests construct
// alternate configurations directly.
package config
