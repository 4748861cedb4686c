package core

// Logger is any service that can log (and report) events.
// expected args: error | map[string]interface{} | any value to be printed
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person is the authenticated caller attached to reported events.
type Person struct {
	ID       string
	Username string
}
