package logport

import (
	"encoding/json"
	"strings"
)

// Level is the severity of a structured log record, using the numeric
// vocabulary clients put on the wire.
type Level int

// Severity levels accepted in structured log records.
const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarn     Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

// Valid reports whether l is one of the accepted severities.
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelCritical:
		return true
	}
	return false
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	}
	return "unknown"
}

// rawLabel is the source attributed to frames that are not structured
// log records.
const rawLabel = "client"

// emptyText is logged in place of an empty raw payload so the record
// remains visible in the log stream.
const emptyText = "-- empty string --"

// Record is a structured log message carried in a frame payload: a JSON
// object with exactly the keys "client" (string), "level" (one of the
// numeric severities) and "msg" (string or number).
type Record struct {
	Client string
	Level  Level
	Msg    string
}

// ParseRecord attempts to interpret a frame payload as a structured log
// record. It returns ok=false for anything that is not a JSON object with
// exactly the three expected keys and a valid severity; the caller then
// logs the raw text verbatim instead.
//
// Single straight apostrophes are normalized to double quotes before
// parsing, tolerating clients that serialize with single-quoted strings.
func ParseRecord(text string) (Record, bool) {
	normalized := strings.ReplaceAll(text, "'", `"`)

	dec := json.NewDecoder(strings.NewReader(normalized))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || dec.More() || len(obj) != 3 {
		return Record{}, false
	}

	client, ok := obj["client"].(string)
	if !ok {
		return Record{}, false
	}

	levelNum, ok := obj["level"].(json.Number)
	if !ok {
		return Record{}, false
	}
	levelInt, err := levelNum.Int64()
	if err != nil || !Level(levelInt).Valid() {
		return Record{}, false
	}

	var msg string
	switch v := obj["msg"].(type) {
	case string:
		msg = v
	case json.Number:
		msg = v.String()
	default:
		return Record{}, false
	}

	return Record{Client: client, Level: Level(levelInt), Msg: msg}, true
}
