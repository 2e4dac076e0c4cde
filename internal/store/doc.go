// Package store provides abstractions for collection persistence.
package store
