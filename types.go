package squeeze

import "fmt"

// Logger is the minimal logging surface the library needs. cmd/server wires
// a glog logger; tests and zero-config callers get defLogger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the auth options consumed by the decoder and resolver.
type Config interface {
	GetSigningKey() string
	GetProjectRef() string
	GetVerifySignature() bool
	GetVerifyExpiration() bool
	GetVerifyAudience() bool
	GetAudience() []string
	GetJWKSetURLs() []string
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { defPrint("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { defPrint("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { defPrint("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { defPrint("ERR", msg, args...) }

func defPrint(level, msg string, args ...any) {
	if len(args) > 0 {
		fmt.Printf("[%s] SQZ %s %v\n", level, msg, args)
		return
	}
	fmt.Printf("[%s] SQZ %s\n", level, msg)
}
