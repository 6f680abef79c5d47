package convert

import "databridge/internal/domain"

// ToJSON renders a sample set, or any decoded JSON value, as a two-space
// indented document.
func ToJSON(v any) (string, error) {
	return domain.IndentJSON(v)
}
