// Package config defines the application configuration structure
// and loading mechanism.
package config
