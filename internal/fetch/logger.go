package fetch

import "github.com/rs/zerolog"

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct{ log zerolog.Logger }

func (l leveledLogger) Error(msg string, kv ...interface{}) { fields(l.log.Error(), kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { fields(l.log.Debug(), kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { fields(l.log.Debug(), kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { fields(l.log.Warn(), kv).Msg(msg) }

func fields(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(k, kv[i+1])
	}
	return e
}
