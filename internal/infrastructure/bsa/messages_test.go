package bsa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/filing-pro/internal/infrastructure/bsa"
)

func TestParseMessages_ErrorDominatesWithoutMarker(t *testing.T) {
	// No StatusCode anywhere: the presence of an error entry alone must mean
	// rejection.
	data := []byte(`<?xml version="1.0"?>
<EFilingSubmissionXML>
  <EFilingActivityXML>
    <ActivitySeqNum>1</ActivitySeqNum>
    <EFilingActivityErrorXML>
      <ErrorTypeCode>E-233</ErrorTypeCode>
      <ErrorText>Transferee identification missing</ErrorText>
      <ErrorElementSeqNum>7</ErrorElementSeqNum>
    </EFilingActivityErrorXML>
  </EFilingActivityXML>
</EFilingSubmissionXML>`)

	res := bsa.ParseMessages(data)
	assert.Equal(t, bsa.StatusRejected, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "E-233", res.Errors[0].Code)
	assert.Equal(t, "Transferee identification missing", res.Errors[0].Message)
	assert.Equal(t, uint64(7), res.Errors[0].SeqNum)
}

func TestParseMessages_ErrorDominatesAcceptedMarker(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<EFilingSubmissionXML StatusCode="A">
  <EFilingActivityErrorXML>
    <ErrorTypeCode>E-100</ErrorTypeCode>
    <ErrorText>Fatal schema violation</ErrorText>
  </EFilingActivityErrorXML>
</EFilingSubmissionXML>`)

	res := bsa.ParseMessages(data)
	assert.Equal(t, bsa.StatusRejected, res.Status,
		"errors always dominate an accepted marker")
}

func TestParseMessages_WarningsPromoteToAcceptedWithWarnings(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<EFilingSubmissionXML StatusCode="ACCEPTED">
  <EFilingActivityErrorXML>
    <ErrorTypeCode>W-012</ErrorTypeCode>
    <ErrorText>ZIP code could not be verified</ErrorText>
    <ErrorLevelText>WARNING</ErrorLevelText>
    <ErrorElementSeqNum>12</ErrorElementSeqNum>
  </EFilingActivityErrorXML>
</EFilingSubmissionXML>`)

	res := bsa.ParseMessages(data)
	assert.Equal(t, bsa.StatusAcceptedWithWarnings, res.Status)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "W-012", res.Warnings[0].Code)
	assert.Equal(t, uint64(12), res.Warnings[0].SeqNum)
}

func TestParseMessages_CleanAcceptance(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<EFilingSubmissionXML>
  <StatusCode>A</StatusCode>
</EFilingSubmissionXML>`)

	res := bsa.ParseMessages(data)
	assert.Equal(t, bsa.StatusAccepted, res.Status)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.ParseIssues)
}

func TestParseMessages_RejectedMarkerWithoutErrorEntries(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<EFilingSubmissionXML StatusCode="REJ"/>`)

	res := bsa.ParseMessages(data)
	assert.Equal(t, bsa.StatusRejected, res.Status)
	assert.Empty(t, res.Errors, "a bare rejected marker carries no typed errors")
}

func TestParseMessages_GarbageYieldsUnknown(t *testing.T) {
	res := bsa.ParseMessages([]byte("not xml at all"))
	assert.Equal(t, bsa.StatusUnknown, res.Status)
	assert.NotEmpty(t, res.ParseIssues, "unreadable input must be reported, never panic")
}

func TestParseMessages_EmptyErrorEntryIsAParseIssue(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<EFilingSubmissionXML StatusCode="A">
  <EFilingActivityErrorXML/>
</EFilingSubmissionXML>`)

	res := bsa.ParseMessages(data)
	assert.Equal(t, bsa.StatusAccepted, res.Status,
		"an empty error entry must not flip the outcome")
	assert.NotEmpty(t, res.ParseIssues)
}

func TestMessagesResult_FirstError(t *testing.T) {
	empty := &bsa.MessagesResult{}
	assert.Zero(t, empty.FirstError())

	res := &bsa.MessagesResult{Errors: []bsa.StatusError{{Code: "E-1"}, {Code: "E-2"}}}
	assert.Equal(t, "E-1", res.FirstError().Code)
}
