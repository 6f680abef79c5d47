package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DecodeJSON parses a JSON document keeping object key order. Objects become
// Record, arrays []any, integers int64 and other numbers float64.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected trailing data %v", tok)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec := Record{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("invalid object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				rec.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return rec, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		return parseNumber(t)
	default:
		// string, bool or nil
		return t, nil
	}
}

func parseNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if errors.Is(err, strconv.ErrRange) {
		return nil, fmt.Errorf("number %q is outside the float64 range", s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}

// EncodeJSON renders v as compact JSON. Record key order is kept, non-ASCII
// text is written as-is and HTML characters are not escaped.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IndentJSON renders v with a two-space indent.
func IndentJSON(v any) (string, error) {
	compact, err := EncodeJSON(v)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

var errUnsupportedFloat = errors.New("json: unsupported float value")

func writeJSON(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case Record:
		buf.WriteByte('{')
		for i, f := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, f.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case SampleSet:
		buf.WriteByte('[')
		for i, rec := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, rec); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case string:
		return writeString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		fmt.Fprint(buf, val)
	case float32:
		return writeFloat(buf, float64(val))
	case float64:
		return writeFloat(buf, val)
	case json.Number:
		buf.WriteString(val.String())
	default:
		b, err := marshalNoEscape(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errUnsupportedFloat
	}
	buf.WriteString(FormatFloat(f))
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := marshalNoEscape(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FormatFloat renders f the shortest way that round-trips, always keeping a
// fractional part or an exponent so the value still reads as a float:
// 1 -> "1.0", 0.5 -> "0.5", 1e16 -> "1e+16", 1e-05 -> "1e-05".
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// KindOf names the JSON kind of a decoded value.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case Record:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
