package convert_test

import (
	"errors"
	"strings"
	"testing"

	"databridge/internal/convert"
	"databridge/internal/domain"
)

func rec(kv ...any) domain.Record {
	r := domain.Record{}
	for i := 0; i < len(kv); i += 2 {
		r = append(r, domain.Field{Key: kv[i].(string), Value: kv[i+1]})
	}
	return r
}

// ─────────────────────────────────────────────────────────────
// Type inference
// ─────────────────────────────────────────────────────────────

func TestInferColumnType(t *testing.T) {
	cases := []struct {
		field string
		value any
		want  string
	}{
		{"_id", "65a1f0c2e4b0a1b2c3d4e5f6", convert.TypeObjectID},
		{"_id", int64(7), convert.TypeObjectID},
		{"_id", nil, convert.TypeObjectID},
		{"active", true, convert.TypeBoolean},
		{"active", false, convert.TypeBoolean},
		{"count", int64(3), convert.TypeInt},
		{"count", 3, convert.TypeInt},
		{"score", 3.5, convert.TypeFloat},
		{"score", float32(1.25), convert.TypeFloat},
		{"name", "x", convert.TypeVarchar},
		{"missing", nil, convert.TypeVarchar},
		{"nested", rec("a", int64(1)), convert.TypeVarchar},
		{"list", []any{int64(1)}, convert.TypeVarchar},
	}
	for _, c := range cases {
		if got := convert.InferColumnType(c.field, c.value); got != c.want {
			t.Errorf("InferColumnType(%q, %#v) = %s, want %s", c.field, c.value, got, c.want)
		}
	}
}

// ─────────────────────────────────────────────────────────────
// Document → SQL
// ─────────────────────────────────────────────────────────────

func TestToSQL_Empty(t *testing.T) {
	if got := convert.ToSQL(nil, "users"); got != "-- No data to convert." {
		t.Errorf("got %q", got)
	}
	if got := convert.ToSQL(domain.SampleSet{}, "users"); strings.Contains(got, "CREATE") || strings.Contains(got, "INSERT") {
		t.Errorf("empty set produced statements: %q", got)
	}
}

func TestToSQL_ExactOutput(t *testing.T) {
	set := domain.SampleSet{
		rec("id", int64(1), "active", true, "score", 3.5, "name", "O'Brien"),
	}
	got := convert.ToSQL(set, "people")
	want := "CREATE TABLE `people` (\n" +
		"  `id` INT,\n" +
		"  `active` BOOLEAN,\n" +
		"  `score` FLOAT,\n" +
		"  `name` VARCHAR(255)\n" +
		");\n\n" +
		"INSERT INTO `people` (`id`, `active`, `score`, `name`) VALUES (1, TRUE, 3.5, 'O''Brien');\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestToSQL_OneInsertPerRecordInOrder(t *testing.T) {
	set := domain.SampleSet{
		rec("n", int64(1)),
		rec("n", int64(2)),
		rec("n", int64(3)),
	}
	got := convert.ToSQL(set, "t")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	var inserts []string
	for _, l := range lines {
		if strings.HasPrefix(l, "INSERT") {
			inserts = append(inserts, l)
		}
	}
	if len(inserts) != 3 {
		t.Fatalf("expected 3 INSERT lines, got %d", len(inserts))
	}
	for i, l := range inserts {
		want := "VALUES (" + string(rune('1'+i)) + ");"
		if !strings.HasSuffix(l, want) {
			t.Errorf("insert %d = %q, want suffix %q", i, l, want)
		}
	}
}

func TestToSQL_ColumnsFromFirstRecordOnly(t *testing.T) {
	set := domain.SampleSet{
		rec("a", int64(1), "b", "x"),
		rec("a", int64(2), "b", "y", "c", true),
	}
	got := convert.ToSQL(set, "t")
	if strings.Contains(got, "`c`") {
		t.Errorf("extra field leaked into output:\n%s", got)
	}
	if !strings.Contains(got, "VALUES (2, 'y');") {
		t.Errorf("second record not rendered with first record's columns:\n%s", got)
	}
}

func TestToSQL_MissingFieldIsNull(t *testing.T) {
	set := domain.SampleSet{
		rec("a", int64(1), "b", "x"),
		rec("a", int64(2)),
	}
	got := convert.ToSQL(set, "t")
	if !strings.Contains(got, "VALUES (2, NULL);") {
		t.Errorf("missing field not rendered as NULL:\n%s", got)
	}
}

func TestToSQL_ObjectIDAlwaysVarchar24(t *testing.T) {
	set := domain.SampleSet{rec("_id", int64(5), "v", nil)}
	got := convert.ToSQL(set, "c")
	if !strings.Contains(got, "`_id` VARCHAR(24)") {
		t.Errorf("got:\n%s", got)
	}
}

func TestToSQL_TypesFromFirstRecordOnly(t *testing.T) {
	set := domain.SampleSet{
		rec("v", int64(1)),
		rec("v", 2.5),
	}
	got := convert.ToSQL(set, "t")
	if !strings.Contains(got, "`v` INT") || !strings.Contains(got, "VALUES (2.5);") {
		t.Errorf("got:\n%s", got)
	}
}

func TestSQLLiteral(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{true, "TRUE"},
		{false, "FALSE"},
		{int64(-4), "-4"},
		{2.0, "2.0"},
		{0.1, "0.1"},
		{"plain", "'plain'"},
		{"it's", "'it''s'"},
		{`back\slash`, `'back\slash'`},
		{rec("k", "v"), `'{"k":"v"}'`},
		{[]any{int64(1), "a'b"}, `'[1,"a''b"]'`},
	}
	for _, c := range cases {
		if got := convert.SQLLiteral(c.in); got != c.want {
			t.Errorf("SQLLiteral(%#v) = %s, want %s", c.in, got, c.want)
		}
	}
}

// ─────────────────────────────────────────────────────────────
// SQL → JSON
// ─────────────────────────────────────────────────────────────

func TestToJSON_PreservesOrderAndValues(t *testing.T) {
	set := domain.SampleSet{
		rec("z", int64(1), "a", "café", "n", nil),
	}
	got, err := convert.ToJSON(set)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	want := "[\n  {\n    \"z\": 1,\n    \"a\": \"café\",\n    \"n\": null\n  }\n]"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestToJSON_RoundTripsThroughDecoder(t *testing.T) {
	set := domain.SampleSet{
		rec("id", int64(1), "tags", []any{"a", "b"}, "meta", rec("x", 1.5)),
		rec("id", int64(2), "tags", []any{}, "meta", nil),
	}
	out, err := convert.ToJSON(set)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := domain.DecodeJSON([]byte(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	arr := back.([]any)
	if len(arr) != 2 {
		t.Fatalf("expected 2 records, got %d", len(arr))
	}
	first := arr[0].(domain.Record)
	if strings.Join(first.Keys(), ",") != "id,tags,meta" {
		t.Errorf("keys = %v", first.Keys())
	}
}

// ─────────────────────────────────────────────────────────────
// Dispatcher
// ─────────────────────────────────────────────────────────────

func TestConvert_SQLToNoSQL(t *testing.T) {
	res, err := convert.Convert(domain.ModeSQLToNoSQL, convert.Input{
		Preview: domain.SampleSet{rec("id", int64(1))},
		Source:  "users",
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Filename != "users.json" {
		t.Errorf("filename = %q", res.Filename)
	}
	if !strings.HasPrefix(res.Content, "[\n  {") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestConvert_NoSQLToSQL(t *testing.T) {
	res, err := convert.Convert(domain.ModeNoSQLToSQL, convert.Input{
		Preview: domain.SampleSet{rec("_id", "65a1f0c2e4b0a1b2c3d4e5f6", "n", int64(1))},
		Source:  "orders",
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Filename != "orders.sql" {
		t.Errorf("filename = %q", res.Filename)
	}
	if !strings.HasPrefix(res.Content, "CREATE TABLE `orders` (") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestConvert_JSONToSQL_WrapsSingleObject(t *testing.T) {
	res, err := convert.Convert(domain.ModeJSONToSQL, convert.Input{
		Upload: &convert.Upload{Filename: "customer.data.json", Data: []byte(`{"id": 9, "vip": false}`)},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Filename != "customer.data.sql" {
		t.Errorf("filename = %q", res.Filename)
	}
	if !strings.Contains(res.Content, "INSERT INTO `customer.data` (`id`, `vip`) VALUES (9, FALSE);") {
		t.Errorf("content:\n%s", res.Content)
	}
}

func TestConvert_JSONToSQL_EmptyArray(t *testing.T) {
	res, err := convert.Convert(domain.ModeJSONToSQL, convert.Input{
		Upload: &convert.Upload{Filename: "empty.json", Data: []byte(`[]`)},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Content != convert.EmptyNotice || res.Filename != "empty.sql" {
		t.Errorf("got %+v", res)
	}
}

func TestConvert_JSONToNoSQL_KeepsFilename(t *testing.T) {
	res, err := convert.Convert(domain.ModeJSONToNoSQL, convert.Input{
		Upload: &convert.Upload{Filename: "raw.json", Data: []byte(`{"b":1,"a":[true]}`)},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Filename != "raw.json" {
		t.Errorf("filename = %q", res.Filename)
	}
	want := "{\n  \"b\": 1,\n  \"a\": [\n    true\n  ]\n}"
	if res.Content != want {
		t.Errorf("got:\n%s\nwant:\n%s", res.Content, want)
	}
}

func TestConvert_MissingSourceData(t *testing.T) {
	cases := []struct {
		name string
		mode domain.ConversionMode
		in   convert.Input
	}{
		{"no table", domain.ModeSQLToNoSQL, convert.Input{Preview: domain.SampleSet{rec("a", int64(1))}}},
		{"empty preview", domain.ModeSQLToNoSQL, convert.Input{Source: "t"}},
		{"no collection", domain.ModeNoSQLToSQL, convert.Input{}},
		{"no upload sql", domain.ModeJSONToSQL, convert.Input{}},
		{"no upload json", domain.ModeJSONToNoSQL, convert.Input{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := convert.Convert(c.mode, c.in)
			if !errors.Is(err, domain.ErrNoSourceData) {
				t.Errorf("expected ErrNoSourceData, got %v", err)
			}
		})
	}
}

func TestConvert_InvalidMode(t *testing.T) {
	_, err := convert.Convert(domain.ConversionMode("csv_to_sql"), convert.Input{})
	if !errors.Is(err, domain.ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestConvert_MalformedUpload(t *testing.T) {
	for _, mode := range []domain.ConversionMode{domain.ModeJSONToSQL, domain.ModeJSONToNoSQL} {
		_, err := convert.Convert(mode, convert.Input{
			Upload: &convert.Upload{Filename: "bad.json", Data: []byte(`{"a": `)},
		})
		var srcErr *domain.SourceIOError
		if !errors.As(err, &srcErr) {
			t.Errorf("%s: expected SourceIOError, got %v", mode, err)
			continue
		}
		if srcErr.Source != "bad.json" {
			t.Errorf("%s: source = %q", mode, srcErr.Source)
		}
	}
}

func TestConvert_JSONToSQL_RejectsScalarArray(t *testing.T) {
	_, err := convert.Convert(domain.ModeJSONToSQL, convert.Input{
		Upload: &convert.Upload{Filename: "nums.json", Data: []byte(`[1, 2]`)},
	})
	var notObj *domain.NotObjectError
	if !errors.As(err, &notObj) {
		t.Errorf("expected NotObjectError, got %v", err)
	}
}

func TestTableName(t *testing.T) {
	cases := map[string]string{
		"users.json":      "users",
		"archive.tar.gz":  "archive.tar",
		"noext":           "noext",
		".json":           ".json",
		"..json":          "..json",
		"dir/orders.json": "orders",
		".hidden.json":    ".hidden",
	}
	for in, want := range cases {
		if got := convert.TableName(in); got != want {
			t.Errorf("TableName(%q) = %q, want %q", in, got, want)
		}
	}
}
