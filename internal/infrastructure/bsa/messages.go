package bsa

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// StatusCode is the overall outcome carried by a status-message file.
type StatusCode string

const (
	StatusUnknown              StatusCode = "UNKNOWN"
	StatusAccepted             StatusCode = "ACCEPTED"
	StatusAcceptedWithWarnings StatusCode = "ACCEPTED_WITH_WARNINGS"
	StatusRejected             StatusCode = "REJECTED"
)

// StatusError is one typed error from a status-message file.
type StatusError struct {
	Code    string
	Message string
	SeqNum  uint64 // originating sequence number, 0 when absent
}

// StatusWarning is one non-fatal finding from a status-message file.
type StatusWarning struct {
	Code    string
	Message string
	SeqNum  uint64
}

// MessagesResult is the normalized content of one status-message file.
// Transient: its fields are folded into the filing submission, it is never
// persisted itself.
type MessagesResult struct {
	Status      StatusCode
	Errors      []StatusError
	Warnings    []StatusWarning
	ParseIssues []string
}

// FirstError returns the first error, or a zero value when none exist.
func (r *MessagesResult) FirstError() StatusError {
	if len(r.Errors) == 0 {
		return StatusError{}
	}
	return r.Errors[0]
}

// ParseMessages extracts the overall status, errors and warnings from a
// status-message file. It is defensive against partial or malformed input:
// the response producer is an external system whose structure may vary by
// release, so malformed input yields StatusUnknown plus a parse issue, never
// a panic or an error return — the caller decides to retry or escalate.
//
// Derivation rule: any error forces REJECTED regardless of a present
// accepted marker (errors always dominate); warnings with no errors promote
// an accepted result to ACCEPTED_WITH_WARNINGS.
func ParseMessages(data []byte) *MessagesResult {
	res := &MessagesResult{Status: StatusUnknown}

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		res.ParseIssues = append(res.ParseIssues, "status file does not parse as XML: "+err.Error())
		return res
	}
	root := tree.Root()
	if root == nil {
		res.ParseIssues = append(res.ParseIssues, "status file has no root element")
		return res
	}

	marker := statusMarker(root)

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == "EFilingActivityErrorXML" {
			code := childText(el, "ErrorTypeCode")
			msg := childText(el, "ErrorText")
			seq := childSeq(el, "ErrorElementSeqNum")
			level := strings.ToUpper(childText(el, "ErrorLevelText"))
			switch {
			case strings.HasPrefix(level, "WARN"):
				res.Warnings = append(res.Warnings, StatusWarning{Code: code, Message: msg, SeqNum: seq})
			case code == "" && msg == "":
				res.ParseIssues = append(res.ParseIssues, "error entry with neither code nor text")
			default:
				res.Errors = append(res.Errors, StatusError{Code: code, Message: msg, SeqNum: seq})
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)

	switch {
	case len(res.Errors) > 0:
		res.Status = StatusRejected
	case marker == StatusRejected:
		res.Status = StatusRejected
	case marker == StatusAccepted && len(res.Warnings) > 0:
		res.Status = StatusAcceptedWithWarnings
	case marker == StatusAccepted:
		res.Status = StatusAccepted
	default:
		res.Status = StatusUnknown
		if len(res.Warnings) == 0 {
			res.ParseIssues = append(res.ParseIssues, "no status marker and no error entries found")
		}
	}
	return res
}

// statusMarker looks for the accepted/rejected marker as a root attribute or
// as a StatusCode element anywhere below the root.
func statusMarker(root *etree.Element) StatusCode {
	v := root.SelectAttrValue("StatusCode", "")
	if v == "" {
		if el := findFirst(root, "StatusCode"); el != nil {
			v = el.Text()
		}
	}
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "A", "ACK", "ACCEPTED":
		return StatusAccepted
	case "R", "REJ", "REJECTED":
		return StatusRejected
	default:
		return StatusUnknown
	}
}

func findFirst(el *etree.Element, tag string) *etree.Element {
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findFirst(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func childText(el *etree.Element, tag string) string {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return strings.TrimSpace(child.Text())
		}
	}
	return ""
}

func childSeq(el *etree.Element, tag string) uint64 {
	n, err := strconv.ParseUint(childText(el, tag), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
