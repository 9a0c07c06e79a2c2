package badgerstore

import "meshrelay.dev/pkg/utils/log"

// dbLogger adapts the relay's leveled logger to badger's Logger interface,
// at a separately configurable level (MESH_DB_LOG_LEVEL) since storage
// engine chatter is usually noisier than the rest of the relay.
type dbLogger struct {
	level log.Level
}

// NewLogger adapts a named log level to badger's Logger interface. Shared
// with the substore package so both of the relay's badger-backed stores
// (the event store and the instance-local durable store) log consistently.
func NewLogger(levelName string) *dbLogger {
	return &dbLogger{level: log.ParseLevel(levelName)}
}

func (l *dbLogger) enabled(at log.Level) bool { return at <= l.level }

func (l *dbLogger) Errorf(format string, a ...any) {
	if l.enabled(log.Error) {
		log.E.F(format, a...)
	}
}
func (l *dbLogger) Warningf(format string, a ...any) {
	if l.enabled(log.Warn) {
		log.W.F(format, a...)
	}
}
func (l *dbLogger) Infof(format string, a ...any) {
	if l.enabled(log.Info) {
		log.I.F(format, a...)
	}
}
func (l *dbLogger) Debugf(format string, a ...any) {
	if l.enabled(log.Debug) {
		log.D.F(format, a...)
	}
}
