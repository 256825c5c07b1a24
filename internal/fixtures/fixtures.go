// Package fixtures holds recorded landmark sequences for end-to-end tests.
package fixtures

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/gesturecast/internal/detector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed testdata/*.json
var sequencesFS embed.FS

// Frame is one landmarks message as a client sends it.
type Frame struct {
	Type  string               `json:"type"`
	Hands [][]detector.Point3D `json:"hands"`
}

// Sequence is a recorded run of frames and the gesture each frame should
// produce when sent in order by one client.
type Sequence struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Frames      []Frame  `json:"frames"`
	Expect      []string `json:"expect"`
}

// Load loads a sequence by name.
func Load(name string) (*Sequence, error) {
	data, err := sequencesFS.ReadFile(path.Join("testdata", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}

	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", name, err)
	}
	if len(seq.Frames) != len(seq.Expect) {
		return nil, fmt.Errorf("sequence %s: %d frames but %d expectations", name, len(seq.Frames), len(seq.Expect))
	}
	return &seq, nil
}

// Names lists every recorded sequence.
func Names() ([]string, error) {
	entries, err := sequencesFS.ReadDir("testdata")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Message encodes frame i as a websocket text message.
func (s *Sequence) Message(i int) ([]byte, error) {
	return json.Marshal(s.Frames[i])
}
