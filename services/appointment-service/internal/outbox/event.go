package outbox

// Appointment lifecycle event types published to Kafka.
const (
	EventAppointmentScheduled = "appointment.scheduled.v1"
	EventAppointmentUpdated   = "appointment.updated.v1"
	EventAppointmentDeleted   = "appointment.deleted.v1"
)

type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
