package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// GateID identifies one of the compound's physical access points. Zero means
// no gate is selected.
type GateID int

const GateNone GateID = 0

// GateSlots is the fixed set of gate slots the compound exposes. The remote
// config document keys its entries by these slot numbers.
var GateSlots = []GateID{1, 3, 4, 5}

// GateLabel carries the bilingual display text for a gate.
type GateLabel struct {
	EN string `json:"en"`
	AR string `json:"ar"`
}

// GateStatus is the remotely controlled availability of a single gate.
type GateStatus struct {
	Enabled bool      `json:"enabled"`
	Text    GateLabel `json:"text"`
}

// GateConfig maps each gate slot to its current status.
type GateConfig map[GateID]GateStatus

// Selectable reports whether the given gate may be chosen for a new pass.
// Unknown slots are never selectable.
func (c GateConfig) Selectable(id GateID) bool {
	return c[id].Enabled
}

// FallbackGateConfig is the safe configuration used when the remote fetch or
// parse fails: every gate disabled with an "unavailable" label, so the UI can
// still render deterministically.
func FallbackGateConfig() GateConfig {
	cfg := make(GateConfig, len(GateSlots))
	for _, id := range GateSlots {
		cfg[id] = GateStatus{
			Enabled: false,
			Text:    GateLabel{EN: "Unavailable", AR: "غير متاح"},
		}
	}
	return cfg
}

// ParseGateConfig decodes the remote config blob, a JSON object keyed by gate
// slot number. Slots missing from the document come back disabled.
func ParseGateConfig(raw []byte) (GateConfig, error) {
	var doc map[string]GateStatus
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("gate config: %w", err)
	}

	cfg := FallbackGateConfig()
	for key, status := range doc {
		slot, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("gate config: bad slot key %q", key)
		}
		cfg[GateID(slot)] = status
	}
	return cfg, nil
}
