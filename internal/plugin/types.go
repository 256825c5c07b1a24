// Package plugin runs local executables in response to dispatched actions.
// A plugin lives in its own directory with a plugin.json manifest naming the
// action IDs it handles; each matching action is sent to it as JSON on stdin.
package plugin

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ManifestFile is the manifest file name inside a plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and the actions it handles.
type Manifest struct {
	Name        string              `json:"name" validate:"required,max=64"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Executable  string              `json:"executable" validate:"required"`
	Actions     []string            `json:"actions" validate:"min=1,dive,required"`
	Config      jsoniter.RawMessage `json:"config,omitempty"`
}

// Request is written to the plugin's stdin for one action.
type Request struct {
	Action  string              `json:"action"`
	Gesture string              `json:"gesture"`
	Source  string              `json:"source_identity"`
	Time    time.Time           `json:"time"`
	Config  jsoniter.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin declared action.
func (p *Plugin) Handles(action string) bool {
	for _, a := range p.Manifest.Actions {
		if a == action {
			return true
		}
	}
	return false
}
