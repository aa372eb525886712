package model

import (
	"errors"
)

var (
	ErrInvalidRequest = errors.New("invalid request")

	// ErrExecutableNotFound means none of the searched locations holds the engine.
	ErrExecutableNotFound = errors.New("epubcheck executable not found")
	// ErrSpawnFailed means the operating system refused to start the engine.
	ErrSpawnFailed = errors.New("epubcheck could not be started")
	// ErrNoOutputProduced means the engine terminated without writing its JSON report.
	ErrNoOutputProduced = errors.New("epubcheck produced no output")
	// ErrMalformedOutput means the JSON report exists but can't be decoded.
	ErrMalformedOutput = errors.New("epubcheck output is malformed")
)
