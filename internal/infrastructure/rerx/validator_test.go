package rerx_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infrarerx "github.com/tu-usuario/filing-pro/internal/infrastructure/rerx"
)

func structuralCodes(t *testing.T, err error) []string {
	t.Helper()
	var se *infrarerx.StructuralError
	require.ErrorAs(t, err, &se)
	codes := make([]string, len(se.Violations))
	for i, v := range se.Violations {
		codes[i] = v.Code
	}
	return codes
}

// buildValidDocument returns builder output known to pass validation, for
// tests that corrupt it in targeted ways.
func buildValidDocument(t *testing.T) []byte {
	t.Helper()
	res, err := infrarerx.NewDocumentBuilder().Build(buildTestContext())
	require.NoError(t, err)
	return res.XML
}

func TestValidateDocument_NotXML(t *testing.T) {
	err := infrarerx.ValidateDocument([]byte("this is not a document"))
	require.Error(t, err)
	assert.ErrorIs(t, err, infrarerx.ErrStructural)
	assert.Contains(t, structuralCodes(t, err), infrarerx.ViolationNotXML)
}

func TestValidateDocument_WrongFormType(t *testing.T) {
	doc := strings.Replace(string(buildValidDocument(t)),
		`FormTypeCode="RERX"`, `FormTypeCode="FBARX"`, 1)

	err := infrarerx.ValidateDocument([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, structuralCodes(t, err), infrarerx.ViolationFormType)
}

func TestValidateDocument_DuplicateSeqNum(t *testing.T) {
	// Give the Activity node the same SeqNum as the root-most party.
	doc := string(buildValidDocument(t))
	doc = strings.Replace(doc, `<fc2:Activity SeqNum="1">`, `<fc2:Activity SeqNum="2">`, 1)

	err := infrarerx.ValidateDocument([]byte(doc))
	require.Error(t, err)
	codes := structuralCodes(t, err)
	assert.Contains(t, codes, infrarerx.ViolationSeqDuplicate)
}

func TestValidateDocument_NonNumericSeqNum(t *testing.T) {
	doc := strings.Replace(string(buildValidDocument(t)),
		`<fc2:Activity SeqNum="1">`, `<fc2:Activity SeqNum="one">`, 1)

	err := infrarerx.ValidateDocument([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, structuralCodes(t, err), infrarerx.ViolationSeqNotNumeric)
}

func TestValidateDocument_MissingMandatoryRole(t *testing.T) {
	// Strip the reporting person type code; its party stays, the role is gone.
	doc := strings.ReplaceAll(string(buildValidDocument(t)),
		"<fc2:ActivityPartyTypeCode>30</fc2:ActivityPartyTypeCode>",
		"<fc2:ActivityPartyTypeCode>99</fc2:ActivityPartyTypeCode>")

	err := infrarerx.ValidateDocument([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, structuralCodes(t, err), infrarerx.ViolationMissingRole)
}

func TestValidateDocument_MissingSections(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<fc2:EFilingBatchXML xmlns:fc2="www.fincen.gov/base" FormTypeCode="RERX">
  <fc2:Activity SeqNum="1"></fc2:Activity>
</fc2:EFilingBatchXML>`

	err := infrarerx.ValidateDocument([]byte(doc))
	require.Error(t, err)
	codes := structuralCodes(t, err)
	assert.Contains(t, codes, infrarerx.ViolationMissingBlock)
	assert.Contains(t, codes, infrarerx.ViolationMissingRole)
}
