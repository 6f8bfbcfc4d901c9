package types

// CreateRecordingRequest registers a capture intent. ClientRef is the
// client-generated idempotency key; retried creates with the same ref return
// the existing recording.
type CreateRecordingRequest struct {
	ClientRef       string  `json:"client_ref" binding:"required,uuid"`
	CaptureMode     string  `json:"capture_mode" binding:"required,oneof=AMBIENT DICTATION"`
	ConsentBasis    string  `json:"consent_basis" binding:"required,oneof=VERBAL WRITTEN STANDING"`
	PatientID       string  `json:"patient_id" binding:"required"`
	ConsultationID  string  `json:"consultation_id"`
	DurationSeconds float64 `json:"duration_seconds" binding:"gte=0"`
}

// ConfirmUploadRequest reports the size of the uploaded object
type ConfirmUploadRequest struct {
	SizeBytes int64 `json:"size_bytes" binding:"required,gt=0"`
}
