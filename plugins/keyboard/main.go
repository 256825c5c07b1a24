// Package main provides a keyboard plugin for macOS.
// It presses a configured key for each action it receives, via AppleScript.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request represents the input from the plugin executor.
type Request struct {
	Action  string              `json:"action"`
	Gesture string              `json:"gesture"`
	Source  string              `json:"source_identity"`
	Config  jsoniter.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Keystroke is one configured key press. KeyCode wins over Key when set.
type Keystroke struct {
	Key       string   `json:"key"`
	KeyCode   int      `json:"key_code"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("decode request: %w", err))
		return
	}

	writeResponse(handle(req))
}

func handle(req Request) error {
	var keys map[string]Keystroke
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &keys); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}

	k, ok := keys[req.Action]
	if !ok {
		return fmt.Errorf("no key configured for action %s", req.Action)
	}
	if k.Key == "" && k.KeyCode == 0 {
		return fmt.Errorf("action %s: key is required", req.Action)
	}

	return runAppleScript(buildKeystrokeScript(k))
}

// buildKeystrokeScript generates an AppleScript for the given keystroke.
func buildKeystrokeScript(k Keystroke) string {
	press := fmt.Sprintf(`keystroke "%s"`, k.Key)
	if k.KeyCode != 0 {
		press = fmt.Sprintf("key code %d", k.KeyCode)
	}

	var appleModifiers []string
	for _, mod := range k.Modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to %s`, press)
	}
	return fmt.Sprintf(`tell application "System Events" to %s using {%s}`, press, strings.Join(appleModifiers, ", "))
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
