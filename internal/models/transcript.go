package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// SpeakerTurn is one speaker-segmented span of the transcript
type SpeakerTurn struct {
	Speaker    string  `json:"speaker"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SpeakerTurns is stored as a JSON column
type SpeakerTurns []SpeakerTurn

// Value implements driver.Valuer interface for SpeakerTurns
func (t SpeakerTurns) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner interface for SpeakerTurns
func (t *SpeakerTurns) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, t)
}

// Transcript holds the structured transcription result for a recording
type Transcript struct {
	ID          uint         `json:"id" gorm:"primarykey"`
	RecordingID string       `json:"recording_id" gorm:"size:36;not null;uniqueIndex"`
	Text        string       `json:"text" gorm:"type:text"`
	Language    string       `json:"language"`
	Turns       SpeakerTurns `json:"turns" gorm:"type:json"`
	WordCount   int          `json:"word_count"`
	// MeanConfidence is the provider-reported mean word confidence, 0-1.
	MeanConfidence float64        `json:"mean_confidence"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Transcript
func (Transcript) TableName() string {
	return "transcripts"
}
