package topics

const (
	// Mesa
	TableEvents = "table_events"

	// DLQs
	TableEventsDLQ = "table_events_dlq"
)
