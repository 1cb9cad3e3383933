package rerx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/tu-usuario/filing-pro/pkg/rerx"
)

// DocumentBuilder assembles the RERX batch document from a build context.
// Assembly order is fixed: activity envelope, reporting person, each
// transferee with its associated persons, transferors, transmitter,
// transmitter contact, assets, value-transfer activity. Sequence numbers are
// assigned strictly in that emission order.
type DocumentBuilder struct{}

// NewDocumentBuilder creates the builder.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Build generates the batch XML and its trace summary. Identical input
// produces byte-identical output; a fresh Sequencer is created per call.
func (b *DocumentBuilder) Build(bctx *FilingBuildContext) (*BuildResult, error) {
	if bctx == nil || bctx.Transaction == nil {
		return nil, fmt.Errorf("rerx: build context is missing the transaction")
	}
	txn := bctx.Transaction
	seq := NewSequencer()
	summary := BuildSummary{}

	// The activity envelope is the first structural node.
	activitySeq := seq.Next()

	// ── Encode every party up front: association nodes reference the
	// sequence numbers of parties emitted after them. ─────────────────────
	var ordered []*PartyNode

	reporting := EncodeReportingPerson(seq, &txn.ReportingPerson)
	ordered = append(ordered, reporting)

	for i := range txn.Transferees {
		primary, deps, err := EncodeParty(seq, &txn.Transferees[i], rerx.PartyTransferee)
		if err != nil {
			return nil, fmt.Errorf("rerx: transferee %d: %w", i+1, err)
		}
		ordered = append(ordered, primary)
		ordered = append(ordered, deps...)
		summary.AssociationCount += len(deps)
	}
	for i := range txn.Transferors {
		primary, deps, err := EncodeParty(seq, &txn.Transferors[i], rerx.PartyTransferor)
		if err != nil {
			return nil, fmt.Errorf("rerx: transferor %d: %w", i+1, err)
		}
		ordered = append(ordered, primary)
		ordered = append(ordered, deps...)
		summary.AssociationCount += len(deps)
	}

	transmitter := bctx.Transmitter
	contact := bctx.Contact
	ordered = append(ordered, EncodeTransmitter(seq, &transmitter))
	ordered = append(ordered, EncodeTransmitterContact(seq, &contact))

	assetsSeq := seq.Next()
	assetsAddr := encodeAddress(seq, txn.Property.Address)

	vtaSeq := seq.Next()
	type detailNode struct {
		seqNum      uint64
		amount      string
		fundingCode string
		institution *PartyNode
	}
	details := make([]detailNode, len(txn.ValueTransfer.Details))
	for i, d := range txn.ValueTransfer.Details {
		dn := detailNode{
			seqNum:      seq.Next(),
			amount:      formatAmount(d.Amount),
			fundingCode: d.FundingSourceCode,
		}
		if rerx.CleanText(d.InstitutionName) != "" {
			dn.institution = EncodeInstitution(seq, d.InstitutionName, d.InstitutionTaxID)
		}
		details[i] = dn
	}

	// ── Emit ──────────────────────────────────────────────────────────────
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "fc2:EFilingBatchXML"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:fc2"}, Value: rerx.NsFc2},
			{Name: xml.Name{Local: "FormTypeCode"}, Value: rerx.FormTypeCode},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	_ = enc.EncodeToken(openSeq("fc2:Activity", activitySeq))
	writeEl(enc, "fc2:ClosingDateText", txn.ClosingDate.Format(wireDate))

	for _, p := range ordered {
		if err := writeParty(enc, p); err != nil {
			return nil, err
		}
	}
	summary.PartyCount = len(ordered)

	// Assets: the one property record per filing.
	_ = enc.EncodeToken(openSeq("fc2:AssetsAttribute", assetsSeq))
	if assetsAddr != nil {
		writeAddress(enc, assetsAddr)
	}
	if desc := rerx.CleanText(txn.Property.LegalDescription); desc != "" {
		writeEl(enc, "fc2:LegalDescriptionText", desc)
	}
	_ = enc.EncodeToken(closeEl("fc2:AssetsAttribute"))

	// Value-transfer activity with nested institution parties per detail.
	_ = enc.EncodeToken(openSeq("fc2:ValueTransferActivity", vtaSeq))
	writeEl(enc, "fc2:TotalConsiderationAmountText", formatAmount(txn.ValueTransfer.TotalConsideration))
	for _, dn := range details {
		_ = enc.EncodeToken(openSeq("fc2:ValueTransferActivityDetail", dn.seqNum))
		writeEl(enc, "fc2:DetailAmountText", dn.amount)
		if dn.fundingCode != "" {
			writeEl(enc, "fc2:FundingSourceCode", dn.fundingCode)
		}
		if dn.institution != nil {
			if err := writeParty(enc, dn.institution); err != nil {
				return nil, err
			}
		}
		_ = enc.EncodeToken(closeEl("fc2:ValueTransferActivityDetail"))
	}
	_ = enc.EncodeToken(closeEl("fc2:ValueTransferActivity"))

	_ = enc.EncodeToken(closeEl("fc2:Activity"))
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	detailSum := txn.ValueTransfer.DetailSum()
	summary.DetailCount = len(details)
	summary.NodeCount = seq.Last()
	summary.TotalConsideration = formatAmount(txn.ValueTransfer.TotalConsideration)
	summary.DetailSum = formatAmount(detailSum)
	// A detail sum differing from the total is not a build error: multiple
	// funding sources may over- or undercount the reported consideration.
	summary.DetailSumMismatch = len(details) > 0 &&
		!detailSum.Equal(txn.ValueTransfer.TotalConsideration)

	return &BuildResult{XML: buf.Bytes(), Summary: summary}, nil
}

// ── token helpers ─────────────────────────────────────────────────────────────

func openSeq(local string, seqNum uint64) xml.StartElement {
	el := xml.StartElement{Name: xml.Name{Local: local}}
	if seqNum > 0 {
		el.Attr = []xml.Attr{{
			Name:  xml.Name{Local: "SeqNum"},
			Value: strconv.FormatUint(seqNum, 10),
		}}
	}
	return el
}

func closeEl(local string) xml.EndElement {
	return xml.EndElement{Name: xml.Name{Local: local}}
}

func writeEl(enc *xml.Encoder, local, value string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(closeEl(local))
}

// writeElOpt writes the element only when value is non-empty.
func writeElOpt(enc *xml.Encoder, local, value string) {
	if value != "" {
		writeEl(enc, local, value)
	}
}

func writeParty(enc *xml.Encoder, p *PartyNode) error {
	_ = enc.EncodeToken(openSeq("fc2:Party", p.SeqNum))

	writeElOpt(enc, "fc2:ActivityPartyTypeCode", p.TypeCode)
	writeElOpt(enc, "fc2:PartyRoleCode", p.RoleCode)
	writeElOpt(enc, "fc2:RawIndividualFirstName", p.FirstName)
	writeElOpt(enc, "fc2:RawIndividualMiddleName", p.MiddleName)
	writeElOpt(enc, "fc2:RawEntityIndividualLastName", p.LastName)
	writeElOpt(enc, "fc2:RawSuffixText", p.Suffix)
	writeElOpt(enc, "fc2:RawDBAName", p.DBAName)
	writeElOpt(enc, "fc2:RawPartyTitleText", p.Title)
	writeElOpt(enc, "fc2:ReportingPersonCategoryText", p.Category)
	writeElOpt(enc, "fc2:FormationStateCodeText", p.FormationState)
	writeElOpt(enc, "fc2:FormationDateText", p.FormationDate)
	writeElOpt(enc, "fc2:TrustExecutionDateText", p.ExecutionDate)
	writeElOpt(enc, "fc2:RevocableTrustIndicator", p.RevocableIndicator)
	writeElOpt(enc, "fc2:IndividualBirthDateText", p.DateOfBirth)
	writeElOpt(enc, "fc2:PhoneNumberText", p.Phone)
	writeElOpt(enc, "fc2:EmailAddressText", p.Email)
	writeElOpt(enc, "fc2:OwnershipPercentageText", p.OwnershipPercent)

	if id := p.Identification; id != nil {
		_ = enc.EncodeToken(openSeq("fc2:PartyIdentification", id.SeqNum))
		writeEl(enc, "fc2:PartyIdentificationTypeCode", id.TypeCode)
		writeElOpt(enc, "fc2:PartyIdentificationNumberText", id.Value)
		writeElOpt(enc, "fc2:OtherIssuerCountryText", id.Jurisdiction)
		_ = enc.EncodeToken(closeEl("fc2:PartyIdentification"))
	}
	if p.Address != nil {
		writeAddress(enc, p.Address)
	}
	for _, assoc := range p.Associations {
		_ = enc.EncodeToken(openSeq("fc2:PartyAssociation", assoc.SeqNum))
		writeEl(enc, "fc2:PartyAssociationTypeCode", assoc.RoleCode)
		writeEl(enc, "fc2:AssociatedPartySeqNum", strconv.FormatUint(assoc.AssociatedSeqNum, 10))
		_ = enc.EncodeToken(closeEl("fc2:PartyAssociation"))
	}

	_ = enc.EncodeToken(closeEl("fc2:Party"))
	return nil
}

func writeAddress(enc *xml.Encoder, a *AddressNode) {
	_ = enc.EncodeToken(openSeq("fc2:Address", a.SeqNum))
	writeElOpt(enc, "fc2:RawStreetAddress1Text", a.Street)
	writeElOpt(enc, "fc2:RawCityText", a.City)
	writeElOpt(enc, "fc2:RawStateCodeText", a.State)
	writeElOpt(enc, "fc2:RawZIPCode", a.ZIP)
	writeElOpt(enc, "fc2:RawCountryCodeText", a.Country)
	_ = enc.EncodeToken(closeEl("fc2:Address"))
}
