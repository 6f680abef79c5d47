package convert

import (
	"fmt"
	"strings"

	"databridge/internal/domain"
	"databridge/internal/uploads"
)

// Upload is an uploaded JSON file held in memory.
type Upload struct {
	Filename string
	Data     []byte
}

// Input carries everything a conversion may read. Which fields are used
// depends on the mode.
type Input struct {
	Preview domain.SampleSet // captured database preview
	Source  string           // selected table or collection
	Upload  *Upload          // most recent upload
}

// Convert runs the converter for mode against in.
func Convert(mode domain.ConversionMode, in Input) (*domain.Result, error) {
	switch mode {
	case domain.ModeSQLToNoSQL:
		return tableToJSON(in)
	case domain.ModeNoSQLToSQL:
		return collectionToSQL(in)
	case domain.ModeJSONToSQL:
		return uploadToSQL(in)
	case domain.ModeJSONToNoSQL:
		return uploadToJSON(in)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
}

func tableToJSON(in Input) (*domain.Result, error) {
	if err := requirePreview(in, "table"); err != nil {
		return nil, err
	}
	content, err := ToJSON(in.Preview)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return &domain.Result{Filename: in.Source + ".json", Content: content}, nil
}

func collectionToSQL(in Input) (*domain.Result, error) {
	if err := requirePreview(in, "collection"); err != nil {
		return nil, err
	}
	return &domain.Result{Filename: in.Source + ".sql", Content: ToSQL(in.Preview, in.Source)}, nil
}

func uploadToSQL(in Input) (*domain.Result, error) {
	v, err := parseUpload(in.Upload)
	if err != nil {
		return nil, err
	}
	set, err := uploads.Records(v)
	if err != nil {
		return nil, &domain.SourceIOError{Source: in.Upload.Filename, Err: err}
	}
	table := TableName(in.Upload.Filename)
	return &domain.Result{Filename: table + ".sql", Content: ToSQL(set, table)}, nil
}

func uploadToJSON(in Input) (*domain.Result, error) {
	v, err := parseUpload(in.Upload)
	if err != nil {
		return nil, err
	}
	content, err := ToJSON(v)
	if err != nil {
		return nil, &domain.SourceIOError{Source: in.Upload.Filename, Err: err}
	}
	return &domain.Result{Filename: in.Upload.Filename, Content: content}, nil
}

func requirePreview(in Input, kind string) error {
	if in.Source == "" {
		return fmt.Errorf("%w: no %s selected", domain.ErrNoSourceData, kind)
	}
	if len(in.Preview) == 0 {
		return fmt.Errorf("%w: preview of %s is empty", domain.ErrNoSourceData, in.Source)
	}
	return nil
}

func parseUpload(up *Upload) (any, error) {
	if up == nil {
		return nil, fmt.Errorf("%w: no file uploaded", domain.ErrNoSourceData)
	}
	v, err := uploads.ParseJSON(up.Data)
	if err != nil {
		return nil, &domain.SourceIOError{Source: up.Filename, Err: err}
	}
	return v, nil
}

// TableName strips the last extension from an uploaded filename. Leading
// dots do not start an extension, so ".json" stays ".json".
func TableName(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || strings.Trim(base[:dot], ".") == "" {
		return base
	}
	return base[:dot]
}
