// Package hook runs external commands when a wave repetition completes.
package hook

import (
	"encoding/json"
	"time"
)

// EventRepetitionCompleted is sent after a repetition has been stored.
const EventRepetitionCompleted = "repetition_completed"

// Manifest describes a hook installed in the hooks directory.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Args        []string `json:"args,omitempty"`
}

// Hook is a command that receives events as JSON on stdin.
type Hook struct {
	Name    string   `json:"name" toml:"name"`
	Command string   `json:"command" toml:"command"`
	Args    []string `json:"args,omitempty" toml:"args"`
	// Dir is the working directory; empty means the current one.
	Dir string `json:"dir,omitempty" toml:"dir"`
}

// Event represents a notification sent to a hook.
type Event struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id"`
	SessionName     string    `json:"session_name"`
	Repetition      int       `json:"repetition"`
	Count           int       `json:"count"`
	PeakPerformance float64   `json:"peak_performance"`
	Frames          int       `json:"frames"`
	Timestamp       time.Time `json:"timestamp"`
}

// Response represents the output of a hook.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
