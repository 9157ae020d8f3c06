package statement

import (
	"strings"

	"github.com/cleared-dev/bankfeed/internal/model"
)

const utf8BOM = "\ufeff"

// Detect fingerprints content and returns its format, or model.FormatUnknown.
// It checks structure only and never validates the full grammar.
func Detect(content string) model.Format {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), utf8BOM))

	switch {
	case strings.HasPrefix(trimmed, "01,"):
		return model.FormatBAI2
	case strings.Contains(trimmed, ":20:") &&
		(strings.Contains(trimmed, ":60") || strings.Contains(trimmed, ":61:")):
		return model.FormatMT940
	case strings.Contains(trimmed, "<Document") && strings.Contains(trimmed, "camt.053"):
		return model.FormatCAMT053
	default:
		return model.FormatUnknown
	}
}
