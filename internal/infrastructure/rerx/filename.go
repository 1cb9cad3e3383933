package rerx

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/filing-pro/pkg/rerx"
)

// filenameStamp is the timestamp layout inside upload filenames.
const filenameStamp = "20060102150405"

// BuildFilename produces the upload name for one document:
//
//	<FORM-PREFIX>.<yyyyMMddHHmmss>.<identity-token>[.<uniqueness-suffix>].xml
//
// The identity token is typically the transmitter control code. The optional
// suffix guarantees uniqueness across retries of the same logical filing
// inside one clock second.
func BuildFilename(identityToken string, at time.Time, unique bool) string {
	parts := []string{
		rerx.FormTypeCode,
		at.UTC().Format(filenameStamp),
		sanitizeToken(identityToken),
	}
	if unique {
		parts = append(parts, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	return strings.Join(parts, ".") + ".xml"
}

// sanitizeToken strips anything that would break the dotted filename.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "UNKNOWN"
	}
	return b.String()
}

// ParseFilename splits an upload filename back into its parts. Used by the
// poller to correlate response files with submissions.
func ParseFilename(name string) (form, stamp, token string, err error) {
	base := strings.TrimSuffix(name, ".xml")
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("rerx: filename %q does not match the upload convention", name)
	}
	return parts[0], parts[1], parts[2], nil
}
