package rerx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/tu-usuario/filing-pro/pkg/rerx"
)

// ErrStructural marks a document that failed the post-build self-check.
// This is always a builder defect: the validator intentionally duplicates
// invariants the builder and preflight already enforce, as a defense against
// a single-implementation bug silently producing an invalid filing.
var ErrStructural = errors.New("rerx: document failed structural validation")

// StructuralError carries the full violation list, same contract as
// PreflightError.
type StructuralError struct {
	Violations []Violation
}

func (e *StructuralError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("%v: %s", ErrStructural, strings.Join(msgs, "; "))
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// Structural violation codes.
const (
	ViolationNotXML        = "NOT_XML"
	ViolationFormType      = "FORM_TYPE"
	ViolationMissingRole   = "MISSING_PARTY_ROLE"
	ViolationMissingBlock  = "MISSING_SECTION"
	ViolationSeqNotNumeric = "SEQNUM_NOT_NUMERIC"
	ViolationSeqDuplicate  = "SEQNUM_DUPLICATE"
	ViolationSeqOrder      = "SEQNUM_ORDER"
)

// ValidateDocument parses the serialized document back and independently
// re-checks: the fixed form-type marker, the five mandatory party roles, the
// assets and value-transfer sections, and sequence-number uniqueness and
// strict increase in document order. Any violation aborts transmission.
func ValidateDocument(doc []byte) error {
	var violations []Violation
	add := func(code, field, message string) {
		violations = append(violations, Violation{Code: code, Field: field, Message: message})
	}

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(doc); err != nil {
		add(ViolationNotXML, "document", "document does not parse as XML: "+err.Error())
		return &StructuralError{Violations: violations}
	}
	root := tree.Root()
	if root == nil || root.Tag != "EFilingBatchXML" {
		add(ViolationNotXML, "root", "root element is not EFilingBatchXML")
		return &StructuralError{Violations: violations}
	}
	if v := root.SelectAttrValue("FormTypeCode", ""); v != rerx.FormTypeCode {
		add(ViolationFormType, "FormTypeCode",
			fmt.Sprintf("expected form type %q, found %q", rerx.FormTypeCode, v))
	}

	// Walk the tree in document order collecting sequence numbers, party
	// type codes and section presence.
	var (
		seqNums   []uint64
		seen      = map[uint64]bool{}
		roles     = map[string]bool{}
		hasAssets bool
		hasVTA    bool
	)
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if attr := el.SelectAttr("SeqNum"); attr != nil {
			n, err := strconv.ParseUint(attr.Value, 10, 64)
			if err != nil {
				add(ViolationSeqNotNumeric, el.Tag,
					fmt.Sprintf("SeqNum %q is not numeric", attr.Value))
			} else {
				if seen[n] {
					add(ViolationSeqDuplicate, el.Tag,
						fmt.Sprintf("SeqNum %d assigned more than once", n))
				}
				seen[n] = true
				seqNums = append(seqNums, n)
			}
		}
		switch el.Tag {
		case "ActivityPartyTypeCode":
			roles[strings.TrimSpace(el.Text())] = true
		case "AssetsAttribute":
			hasAssets = true
		case "ValueTransferActivity":
			hasVTA = true
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)

	for i := 1; i < len(seqNums); i++ {
		if seqNums[i] <= seqNums[i-1] {
			add(ViolationSeqOrder, "SeqNum",
				fmt.Sprintf("SeqNum %d follows %d; numbering must strictly increase in document order",
					seqNums[i], seqNums[i-1]))
			break
		}
	}

	for _, role := range rerx.MandatoryPartyTypeCodes {
		if !roles[role] {
			add(ViolationMissingRole, "Party",
				fmt.Sprintf("mandatory party type %s is absent", role))
		}
	}
	if !hasAssets {
		add(ViolationMissingBlock, "AssetsAttribute", "assets section is absent")
	}
	if !hasVTA {
		add(ViolationMissingBlock, "ValueTransferActivity", "value-transfer section is absent")
	}

	if len(violations) > 0 {
		return &StructuralError{Violations: violations}
	}
	return nil
}
