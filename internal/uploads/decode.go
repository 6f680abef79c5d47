package uploads

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"databridge/internal/domain"
)

// ParseJSON decodes the raw bytes of an uploaded file. A leading UTF-8 or
// UTF-16 byte order mark is honoured and stripped; without one the content is
// read as UTF-8.
func ParseJSON(data []byte) (any, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	text, _, err := transform.Bytes(dec, data)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	v, err := domain.DecodeJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return v, nil
}

// Records turns a parsed upload into a SampleSet. A single object becomes a
// one-record set; an array must contain only objects.
func Records(v any) (domain.SampleSet, error) {
	switch val := v.(type) {
	case domain.Record:
		return domain.SampleSet{val}, nil
	case []any:
		set := make(domain.SampleSet, 0, len(val))
		for i, item := range val {
			rec, ok := item.(domain.Record)
			if !ok {
				return nil, &domain.NotObjectError{InArray: true, Index: i, Got: domain.KindOf(item)}
			}
			set = append(set, rec)
		}
		return set, nil
	default:
		return nil, &domain.NotObjectError{Got: domain.KindOf(v)}
	}
}
