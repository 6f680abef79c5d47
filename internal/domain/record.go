package domain

// Field is one column/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is a single row or document. Field order is the order in which the
// source produced the columns and is preserved through every conversion.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of an existing key in place, or appends a new field.
func (r *Record) Set(key string, value any) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Key: key, Value: value})
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

func (r Record) MarshalJSON() ([]byte, error) {
	return EncodeJSON(r)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	rec, ok := v.(Record)
	if !ok {
		return &NotObjectError{Got: KindOf(v)}
	}
	*r = rec
	return nil
}

// SampleSet is the ordered list of records captured from a source, at most
// the preview limit long.
type SampleSet []Record

// Result is a generated artifact ready for download.
type Result struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
