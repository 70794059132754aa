package event

// RegisterDefaults registers the event classes this engine ships with. It is
// the single place new payload types get added to the process-wide
// Registry, satisfying spec §4.1's "registration... must complete before
// the first event of that type is created or recovered".
func RegisterDefaults(reg *Registry) {
	reg.Register("SystemNotification", func() Payload { return &SystemNotificationPayload{} })
	reg.Register("Alert", func() Payload { return &AlertPayload{} })
}
