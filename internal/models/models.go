package models

// All returns every server-side model for auto migration. PendingRecording is
// deliberately excluded: it lives in the client-local queue database, not the
// server store.
func All() []any {
	return []any{
		&Recording{},
		&Transcript{},
		&AuditEvent{},
		&WebhookDelivery{},
		&Job{},
	}
}
