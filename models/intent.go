package models

// IntentKind classifies what the user wants from a chat turn.
type IntentKind string

const (
	IntentBook        IntentKind = "book"
	IntentList        IntentKind = "list"
	IntentDelete      IntentKind = "delete"
	IntentAmbiguous   IntentKind = "ambiguous"
	IntentUnsupported IntentKind = "unsupported"
)

// NoWindow marks an absent time window bound on an Intent.
const NoWindow = -1

// Intent is the structured reading of a chat message. It is produced once by
// the extractor and never mutated afterwards; downstream components derive new
// values from it.
type Intent struct {
	Kind            IntentKind `json:"kind"`
	Date            string     `json:"date,omitempty"`        // "2006-01-02", empty when not given
	WindowStart     int        `json:"windowStart"`           // minutes from midnight, NoWindow when absent
	WindowEnd       int        `json:"windowEnd"`             // minutes from midnight, NoWindow when absent
	DurationMinutes int        `json:"durationMinutes"`       // 0 when not given
	Title           string     `json:"title,omitempty"`
	Attendees       []string   `json:"attendees,omitempty"`
	TargetEventID   string     `json:"targetEventId,omitempty"`
	Confidence      float64    `json:"confidence"`
}

// HasWindow reports whether the user asked for a specific start time.
func (i Intent) HasWindow() bool {
	return i.WindowStart != NoWindow
}
