package database

import "time"

// AudioSegment is the immutable (save for Processed) raw-audio record from
// spec.md §3. Content lives on disk/S3 under BlobPath; this row is metadata.
type AudioSegment struct {
	ID          string
	BlobPath    string
	ContentType string
	DurationMs  int
	SampleRate  int
	Channels    int16
	Talkgroup   int
	System      string
	CapturedAt  time.Time
	Processed   bool
	DedupeKey   string
}

// Call statuses.
const (
	CallStatusActive = "active"
	CallStatusCleared = "cleared"
	CallStatusMerged  = "merged"
)

// Acuity levels, highest severity first.
const (
	AcuityA       = "A"
	AcuityB       = "B"
	AcuityC       = "C"
	AcuityUnknown = "unknown"
)

// Call is the enriched dispatch record from spec.md §3.
type Call struct {
	ID             int64
	AudioSegmentID string
	Timestamp      time.Time
	Talkgroup      int
	System         string
	Frequency      int64
	DurationMs     int
	Transcript     string
	Confidence     float64
	CallType       string
	Location       *string
	Latitude       *float64
	Longitude      *float64
	Keywords       []string
	AcuityLevel    string
	UrgencyScore   float64
	Status         string
	Units          []int64
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UnitTag is a dispatched-unit identity from spec.md §3.
type UnitTag struct {
	ID          int64
	UnitType    string
	UnitNumber  int
	DisplayName string
	Color       string
	Active      bool
}

// KnownUnitTypes is the closed set of unit types the Unit Tagger recognizes.
var KnownUnitTypes = map[string]bool{
	"ambulance": true, "ems": true, "medic": true, "squad": true,
	"engine": true, "ladder": true, "rescue": true, "truck": true,
	"battalion": true, "chief": true,
}

const (
	HospitalConvActive    = "active"
	HospitalConvCompleted = "completed"
)

// HospitalConversation groups related hospital-channel segments (§3).
type HospitalConversation struct {
	ID             int64
	ConversationID string
	Talkgroup      int
	HospitalName   string
	Status         string
	FirstSegmentAt time.Time
	LastSegmentAt  time.Time
	SORDetected    bool
	SORPhysician   *string
}

// HospitalSegment is one transmission within a HospitalConversation (§3).
type HospitalSegment struct {
	ID             int64
	ConversationID string
	SequenceNumber int
	AudioSegmentID string
	Transcript     string
	Confidence     float64
	Timestamp      time.Time
}

// Alert types and severities (§3).
const (
	AlertTypeInfo     = "info"
	AlertTypeWarning  = "warning"
	AlertTypeCritical = "critical"
	AlertTypeSystem   = "system"
	AlertTypeAnomaly  = "anomaly"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a single notification produced by the Alert Engine (§3/§4.J).
type Alert struct {
	ID              int64
	Type            string
	Severity        string
	Category        string
	Title           string
	Message         string
	RelatedCallID   *int64
	RelatedData     map[string]any
	CreatedAt       time.Time
	ExpiresAt       *time.Time
	Acknowledged    bool
	Read            bool
	SoundEnabled    bool
	VisualHighlight bool
}

// AlertRule conditions, one rule_type per spec.md §4.J.
const (
	RuleTypeKeyword   = "keyword"
	RuleTypePattern   = "pattern"
	RuleTypeThreshold = "threshold"
	RuleTypeAnomaly   = "anomaly"
)

// AlertRule drives per-call and periodic alert evaluation (§3/§4.J).
type AlertRule struct {
	ID           int64
	Name         string
	RuleType     string
	Conditions   map[string]any
	Actions      map[string]any
	Priority     int
	Active       bool
	TriggerCount int64
}

// GeocodeCacheEntry is a persisted geocode result, keyed by normalized address (§3/§4.F).
type GeocodeCacheEntry struct {
	NormalizedAddress string
	Latitude          *float64
	Longitude         *float64
	Formatted         string
	Negative          bool
	ExpiresAt         time.Time
}
