package ports

// Intake is a long-running front end that feeds messages to the
// classification service, such as the HTTP API or the SMTP listener.
type Intake interface {
	// Start begins accepting work. It returns once the intake is listening;
	// serving continues in the background.
	Start() error

	// Stop stops accepting work and releases the listener
	Stop() error
}
