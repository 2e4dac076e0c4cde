// Package generation defines the backend-agnostic pieces of the split
// pipeline: the Generator interface implemented by each provider, the
// prompt builder that produces the instruction payload, the extraction
// ladder that salvages card pairs from raw model output, and the error
// taxonomy shared by all of them.
package generation
