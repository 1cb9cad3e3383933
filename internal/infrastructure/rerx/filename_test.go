package rerx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infrarerx "github.com/tu-usuario/filing-pro/internal/infrastructure/rerx"
)

func TestBuildFilename_Convention(t *testing.T) {
	at := time.Date(2026, 3, 17, 14, 30, 5, 0, time.UTC)

	name := infrarerx.BuildFilename("TABC1234", at, false)
	assert.Equal(t, "RERX.20260317143005.TABC1234.xml", name)

	form, stamp, token, err := infrarerx.ParseFilename(name)
	require.NoError(t, err)
	assert.Equal(t, "RERX", form)
	assert.Equal(t, "20260317143005", stamp)
	assert.Equal(t, "TABC1234", token)
}

func TestBuildFilename_UniqueSuffixDiffers(t *testing.T) {
	at := time.Date(2026, 3, 17, 14, 30, 5, 0, time.UTC)

	a := infrarerx.BuildFilename("TABC1234", at, true)
	b := infrarerx.BuildFilename("TABC1234", at, true)
	assert.NotEqual(t, a, b, "retries inside one clock second must not collide")
}

func TestBuildFilename_SanitizesToken(t *testing.T) {
	at := time.Date(2026, 3, 17, 14, 30, 5, 0, time.UTC)

	assert.Equal(t, "RERX.20260317143005.TABC1234.xml",
		infrarerx.BuildFilename(" t-abc.12 34 ", at, false))
	assert.Equal(t, "RERX.20260317143005.UNKNOWN.xml",
		infrarerx.BuildFilename("///", at, false))
}

func TestParseFilename_Invalid(t *testing.T) {
	_, _, _, err := infrarerx.ParseFilename("random.xml")
	assert.Error(t, err)
}
