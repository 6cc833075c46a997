package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when a question is asked before anything was ingested.
var ErrNoContent = errors.New("no content available, ingest a website first")

// Error reports which pipeline stage failed.
type Error struct {
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Pipeline stages named in errors.
const (
	StageCrawl   = "crawl"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageIndex   = "index"
	StagePersist = "persist"
	StageSearch  = "search"
	StageAnswer  = "answer"
	StageArchive = "archive"
)
