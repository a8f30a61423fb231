package perenual

import (
	"encoding/json"
	"fmt"

	"github.com/sakif/plantkeeper/internal/model"
)

// Species is a provider record. Raw is the payload as received; Plant is set
// only when the payload passed validation, Problems only when it did not.
type Species struct {
	Plant    *model.Plant
	Raw      map[string]any
	Problems map[string]string
}

// Validated reports whether the record passed schema validation.
func (s *Species) Validated() bool { return s.Plant != nil }

// MarshalJSON encodes the validated record, or the raw payload as a fallback.
func (s Species) MarshalJSON() ([]byte, error) {
	if s.Plant != nil {
		return json.Marshal(s.Plant)
	}
	return json.Marshal(s.Raw)
}

// GuideType narrows care-guide queries.
type GuideType string

const (
	GuideAny        GuideType = ""
	GuideWatering   GuideType = "watering"
	GuideSunlight   GuideType = "sunlight"
	GuidePruning    GuideType = "pruning"
	GuideFertilizer GuideType = "fertilizer"
)

// ParseGuideType accepts the empty string (all guides) or one of the known types.
func ParseGuideType(s string) (GuideType, error) {
	switch g := GuideType(s); g {
	case GuideAny, GuideWatering, GuideSunlight, GuidePruning, GuideFertilizer:
		return g, nil
	default:
		return "", fmt.Errorf("unknown guide type %q: want watering, sunlight, pruning or fertilizer", s)
	}
}
