// Package main implements the cardsplit command line tool, which splits
// flashcard notes with overly long answers into several short
// question/answer notes using an LLM backend.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
