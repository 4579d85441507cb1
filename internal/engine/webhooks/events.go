package webhooks

// ValidEvents is the closed set of domain event types a webhook may
// subscribe to.
var ValidEvents = []string{
	"task.created",
	"task.updated",
	"task.completed",
	"task.deleted",
	"project.created",
	"project.updated",
	"project.deleted",
	"comment.created",
	"time_entry.created",
}

func IsValidEvent(eventType string) bool {
	for _, e := range ValidEvents {
		if e == eventType {
			return true
		}
	}
	return false
}

// InvalidEvents returns every entry of events that is not in the enum, in
// input order.
func InvalidEvents(events []string) []string {
	var invalid []string
	for _, e := range events {
		if !IsValidEvent(e) {
			invalid = append(invalid, e)
		}
	}
	return invalid
}
