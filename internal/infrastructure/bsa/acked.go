package bsa

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// Receipt is one receipt identifier assigned by the remote system, keyed by
// the activity sequence number it acknowledges.
type Receipt struct {
	ActivitySeqNum uint64
	ReceiptID      string
}

// AckedResult is the normalized content of one acknowledgment file.
// Transient, like MessagesResult.
type AckedResult struct {
	Receipts    []Receipt
	ParseIssues []string
}

// FirstReceiptID returns the first receipt id, or "" when none were found.
func (r *AckedResult) FirstReceiptID() string {
	if len(r.Receipts) == 0 {
		return ""
	}
	return r.Receipts[0].ReceiptID
}

// receiptIDRe matches the long numeric receipt id in raw text. Used when
// structural parsing fails: the file producer may change structure between
// releases, but the id shape is stable.
var receiptIDRe = regexp.MustCompile(`\b\d{12,20}\b`)

// ParseAcknowledgment extracts receipt identifiers per activity sequence
// number. Structural parsing is attempted first; on failure it degrades to a
// pattern-based scan of the raw text. Always returns a best-effort typed
// result, never an error.
func ParseAcknowledgment(data []byte) *AckedResult {
	res := &AckedResult{}

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		res.ParseIssues = append(res.ParseIssues, "acknowledgment does not parse as XML: "+err.Error())
		scanRaw(res, data)
		return res
	}
	root := tree.Root()
	if root == nil {
		res.ParseIssues = append(res.ParseIssues, "acknowledgment has no root element")
		scanRaw(res, data)
		return res
	}

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if id := receiptTag(el); id != "" {
			res.Receipts = append(res.Receipts, Receipt{
				ActivitySeqNum: siblingSeq(el),
				ReceiptID:      id,
			})
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)

	if len(res.Receipts) == 0 {
		res.ParseIssues = append(res.ParseIssues, "no receipt element found; falling back to raw scan")
		scanRaw(res, data)
	}
	return res
}

// receiptTag returns the element's text when it is a receipt id carrier.
func receiptTag(el *etree.Element) string {
	switch el.Tag {
	case "BSAIdentifier", "ReceiptID", "AcknowledgementIdentifier":
		text := strings.TrimSpace(el.Text())
		if receiptIDRe.MatchString(text) {
			return text
		}
	}
	return ""
}

// siblingSeq finds the ActivitySeqNum next to a receipt element, walking up
// one level to its parent activity block.
func siblingSeq(el *etree.Element) uint64 {
	parent := el.Parent()
	if parent == nil {
		return 0
	}
	return childSeq(parent, "ActivitySeqNum")
}

// scanRaw is the fallback: take every long numeric run as a candidate
// receipt id, deduplicated, with no sequence number attribution.
func scanRaw(res *AckedResult, data []byte) {
	seen := map[string]bool{}
	for _, m := range receiptIDRe.FindAllString(string(data), -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		res.Receipts = append(res.Receipts, Receipt{ReceiptID: m})
	}
}
