package logger

// nopLogger discards all log output. Used in tests.
type nopLogger struct{}

// NewNop returns a logger that discards everything.
func NewNop() Interface {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Fatal(string, ...Field) {}

func (n nopLogger) With(...Field) Interface { return n }
func (nopLogger) Sync() error               { return nil }
