package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reading is a single telemetry sample reported by a sensor node.
// Field names match the device wire format exactly; the ingest signature is
// computed over the raw request bytes, so this struct is never re-serialized
// for verification purposes.
type Reading struct {
	ZoneID          string   `json:"zoneId"`
	NodeID          string   `json:"nodeId"`
	TempC           float64  `json:"temp_c"`
	HumPct          float64  `json:"hum_pct"`
	MQ2             float64  `json:"mq2"`   // smoke channel, raw sensor units
	MQ135           float64  `json:"mq135"` // air-quality/gas channel, raw sensor units
	Flame1          bool     `json:"flame1"`
	Flame2          bool     `json:"flame2"`
	SoundDB         float64  `json:"dB"`
	SoundType       string   `json:"sound_type,omitempty"`
	SoundConfidence float64  `json:"sound_confidence"`
	BatteryPct      *float64 `json:"battery_pct,omitempty"`
	Timestamp       int64    `json:"timestamp"` // seconds since epoch, device clock
}

// DerivedMetrics holds the secondary indices computed from a Reading.
// Immutable once produced; derived solely from the reading's own fields.
type DerivedMetrics struct {
	DewPointC     float64 `json:"dewPoint_c"`
	VPDkPa        float64 `json:"vpd_kPa"`
	HeatIndexC    float64 `json:"heatIndex_c"`
	FireRiskIndex int     `json:"fireRiskIndex"` // 0–100
}

// NodeKey identifies a physical sensor location.
type NodeKey struct {
	ZoneID string `json:"zoneId"`
	NodeID string `json:"nodeId"`
}

// Key returns the node identity of the reading.
func (r *Reading) Key() NodeKey {
	return NodeKey{ZoneID: r.ZoneID, NodeID: r.NodeID}
}

func (k NodeKey) String() string {
	return k.ZoneID + "/" + k.NodeID
}

// HistorySample is the compact per-reading record kept in a node's rolling
// history window.
type HistorySample struct {
	Timestamp     int64   `json:"timestamp"`
	TempC         float64 `json:"temp_c"`
	FireRiskIndex int     `json:"fireRiskIndex"`
	SoundDB       float64 `json:"dB"`
}

// NodeRecord is the per-node view exposed by the state store: the latest
// accepted reading with its derived metrics, plus the bounded history window.
type NodeRecord struct {
	Latest  Reading         `json:"latest"`
	Derived DerivedMetrics  `json:"derived"`
	History []HistorySample `json:"history"`
}

// AlertType distinguishes flame-confirmed alerts from threshold warnings.
type AlertType string

const (
	AlertFire    AlertType = "fire"
	AlertWarning AlertType = "warning"
)

// Alert is a risk event raised when a reading trips the trigger policy.
type Alert struct {
	ID            string    `json:"id"`
	ZoneID        string    `json:"zoneId"`
	NodeID        string    `json:"nodeId"`
	Type          AlertType `json:"type"`
	FireRiskIndex int       `json:"fireRiskIndex"`
	SoundDB       float64   `json:"dB"`
	SoundType     string    `json:"sound_type,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Acknowledged  bool      `json:"acknowledged"`
}

// HistoryRecord is the durable form of an accepted reading written to the
// persistence gateway and returned by historical queries.
type HistoryRecord struct {
	ZoneID        string    `json:"zoneId"`
	NodeID        string    `json:"nodeId"`
	Timestamp     int64     `json:"timestamp"`
	TempC         float64   `json:"temp_c"`
	HumPct        float64   `json:"hum_pct"`
	MQ2           float64   `json:"mq2"`
	MQ135         float64   `json:"mq135"`
	SoundDB       float64   `json:"dB"`
	FireRiskIndex int       `json:"fireRiskIndex"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// ValidationError reports a missing or malformed required field. It is a
// policy rejection, distinct from internal failures, so callers can map it to
// a 400 rather than a 500.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reading: field %q %s", e.Field, e.Reason)
}

// wireReading mirrors Reading with pointer fields so absence can be told
// apart from zero values during decoding.
type wireReading struct {
	ZoneID          *string  `json:"zoneId"`
	NodeID          *string  `json:"nodeId"`
	TempC           *float64 `json:"temp_c"`
	HumPct          *float64 `json:"hum_pct"`
	MQ2             *float64 `json:"mq2"`
	MQ135           *float64 `json:"mq135"`
	Flame1          *bool    `json:"flame1"`
	Flame2          *bool    `json:"flame2"`
	SoundDB         *float64 `json:"dB"`
	SoundType       *string  `json:"sound_type"`
	SoundConfidence *float64 `json:"sound_confidence"`
	BatteryPct      *float64 `json:"battery_pct"`
	Timestamp       *int64   `json:"timestamp"`
}

// DecodeReading parses and validates a raw ingest payload. Every required
// field must be present with the right JSON type; the explicitly optional
// fields (sound_type, sound_confidence, battery_pct) default rather than
// fail. Returns a *ValidationError on any policy rejection.
func DecodeReading(raw []byte) (Reading, error) {
	var w wireReading
	if err := json.Unmarshal(raw, &w); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
			return Reading{}, &ValidationError{Field: typeErr.Field, Reason: "has wrong type"}
		}
		return Reading{}, &ValidationError{Field: "body", Reason: "is not valid JSON"}
	}

	required := []struct {
		name   string
		absent bool
	}{
		{"zoneId", w.ZoneID == nil},
		{"nodeId", w.NodeID == nil},
		{"temp_c", w.TempC == nil},
		{"hum_pct", w.HumPct == nil},
		{"mq2", w.MQ2 == nil},
		{"mq135", w.MQ135 == nil},
		{"flame1", w.Flame1 == nil},
		{"flame2", w.Flame2 == nil},
		{"dB", w.SoundDB == nil},
		{"timestamp", w.Timestamp == nil},
	}
	for _, f := range required {
		if f.absent {
			return Reading{}, &ValidationError{Field: f.name, Reason: "is required"}
		}
	}

	if *w.ZoneID == "" {
		return Reading{}, &ValidationError{Field: "zoneId", Reason: "must not be empty"}
	}
	if *w.NodeID == "" {
		return Reading{}, &ValidationError{Field: "nodeId", Reason: "must not be empty"}
	}
	if *w.HumPct < 0 || *w.HumPct > 100 {
		return Reading{}, &ValidationError{Field: "hum_pct", Reason: "must be between 0 and 100"}
	}

	r := Reading{
		ZoneID:     *w.ZoneID,
		NodeID:     *w.NodeID,
		TempC:      *w.TempC,
		HumPct:     *w.HumPct,
		MQ2:        *w.MQ2,
		MQ135:      *w.MQ135,
		Flame1:     *w.Flame1,
		Flame2:     *w.Flame2,
		SoundDB:    *w.SoundDB,
		BatteryPct: w.BatteryPct,
		Timestamp:  *w.Timestamp,
	}
	if w.SoundType != nil {
		r.SoundType = *w.SoundType
	}
	if w.SoundConfidence != nil {
		r.SoundConfidence = *w.SoundConfidence
	}
	return r, nil
}

// ToHistoryRecord converts an accepted reading into its durable form.
func ToHistoryRecord(r Reading, d DerivedMetrics) HistoryRecord {
	return HistoryRecord{
		ZoneID:        r.ZoneID,
		NodeID:        r.NodeID,
		Timestamp:     r.Timestamp,
		TempC:         r.TempC,
		HumPct:        r.HumPct,
		MQ2:           r.MQ2,
		MQ135:         r.MQ135,
		SoundDB:       r.SoundDB,
		FireRiskIndex: d.FireRiskIndex,
		RecordedAt:    clock.Now(),
	}
}

// ToHistorySample extracts the compact rolling-window form of a reading.
func ToHistorySample(r Reading, d DerivedMetrics) HistorySample {
	return HistorySample{
		Timestamp:     r.Timestamp,
		TempC:         r.TempC,
		FireRiskIndex: d.FireRiskIndex,
		SoundDB:       r.SoundDB,
	}
}
