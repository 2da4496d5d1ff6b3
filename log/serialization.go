package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// LogMessageWire is the JSON wire format for a log message from the engine
// to the host.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Source    string        `json:"source,omitempty"`
}

// LogAttrWire represents a single slog attribute for wire transfer.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "bool", "float64", "time", "error", "any"
	Value string `json:"value"` // String representation of the value
}

// toLogAttrWire converts a slog.Attr to LogAttrWire.
func toLogAttrWire(attr slog.Attr) LogAttrWire {
	wire := LogAttrWire{
		Key: attr.Key,
	}
	// Resolve the attribute value
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = fmt.Sprintf("%f", attr.Value.Float64())
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		if v := attr.Value.Any(); v != nil {
			if err, isErr := v.(error); isErr {
				wire.Type = "error"
				wire.Value = err.Error()
			} else if data, marshalErr := json.Marshal(v); marshalErr == nil {
				wire.Type = "json"
				wire.Value = string(data)
			} else {
				wire.Type = "any"
				wire.Value = fmt.Sprintf("%v", v)
			}
		} else {
			wire.Type = "any"
			wire.Value = "<nil>"
		}
	case slog.KindGroup:
		// appendAttr flattens groups; this only sees groups passed directly.
		wire.Type = "group"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	case slog.KindLogValuer:
		return toLogAttrWire(slog.Attr{Key: attr.Key, Value: attr.Value.LogValuer().LogValue()})
	default:
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}

// ParseMessage decodes a JSON log message sent by the engine.
func ParseMessage(data []byte) (LogMessageWire, error) {
	var msg LogMessageWire
	if err := json.Unmarshal(data, &msg); err != nil {
		return LogMessageWire{}, fmt.Errorf("log: invalid message: %w", err)
	}
	return msg, nil
}

// DecodeRecord converts a wire message back into a slog.Record. Attribute
// values are restored to their original kind where the wire type allows it;
// everything else stays a string.
func DecodeRecord(msg LogMessageWire) (slog.Record, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(msg.Level)); err != nil {
		return slog.Record{}, fmt.Errorf("log: invalid level %q: %w", msg.Level, err)
	}

	record := slog.NewRecord(msg.Timestamp, level, msg.Message, 0)
	for _, wire := range msg.Attrs {
		record.AddAttrs(fromLogAttrWire(wire))
	}
	if msg.Source != "" {
		record.AddAttrs(slog.String(slog.SourceKey, msg.Source))
	}
	return record, nil
}

func fromLogAttrWire(wire LogAttrWire) slog.Attr {
	switch wire.Type {
	case "int64":
		if v, err := strconv.ParseInt(wire.Value, 10, 64); err == nil {
			return slog.Int64(wire.Key, v)
		}
	case "uint64":
		if v, err := strconv.ParseUint(wire.Value, 10, 64); err == nil {
			return slog.Uint64(wire.Key, v)
		}
	case "bool":
		if v, err := strconv.ParseBool(wire.Value); err == nil {
			return slog.Bool(wire.Key, v)
		}
	case "float64":
		if v, err := strconv.ParseFloat(wire.Value, 64); err == nil {
			return slog.Float64(wire.Key, v)
		}
	case "time":
		if v, err := time.Parse(time.RFC3339Nano, wire.Value); err == nil {
			return slog.Time(wire.Key, v)
		}
	case "duration":
		if v, err := time.ParseDuration(wire.Value); err == nil {
			return slog.Duration(wire.Key, v)
		}
	case "json":
		return slog.Any(wire.Key, json.RawMessage(wire.Value))
	}
	return slog.String(wire.Key, wire.Value)
}
