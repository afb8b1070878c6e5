package commsutil

// Default COMMS subjects.
const (
	SubjectRegistry     = "cmd.registry.v1"
	SubjectInvokedEvent = "registry.invoked"
)

// BuildInvokedSubject builds the per-command invoked event subject. Dotted
// keys map onto subject tokens, so "registry.invoked.tabs.>" follows a whole
// namespace.
func BuildInvokedSubject(key string) string {
	return SubjectInvokedEvent + "." + key
}
