package database

// Dream is a stored journal entry. Payload is the JSON object the journal
// client sent, kept verbatim so that decoding stays tolerant of its shape.
type Dream struct {
	ID        string
	UserID    string
	Payload   []byte
	SourceKey *string
	CreatedAt *string
	StoredAt  *string
}

// StoredReport is a persisted analysis report.
type StoredReport struct {
	ID             int64
	UserID         string
	TotalDreams    int
	SkippedRecords int
	LexiconVersion *string
	ReportJSON     []byte
	GeneratedAt    *string
}

// Subscription is a user's plan.
type Subscription struct {
	UserID          string
	Type            string // "basic" or "premium"
	SubscriptionEnd *string
	UpdatedAt       *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalDreams  int
	Users        int
	Reports      int
	PremiumUsers int
}
