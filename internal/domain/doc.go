// Package domain contains the core entities of the card-split pipeline:
// notes, generated card pairs, and the processing state derived from tags.
package domain
