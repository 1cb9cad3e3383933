package rerx

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	"github.com/tu-usuario/filing-pro/pkg/rerx"
)

// wireDate is the date layout of every *DateText element.
const wireDate = "20060102"

// AddressNode is the address structural node of a party or of the property.
type AddressNode struct {
	SeqNum  uint64
	Street  string
	City    string
	State   string
	ZIP     string
	Country string
}

// IdentificationNode is the identification structural node of a party. It is
// always present: a party without any usable id gets the explicit
// no-identification placeholder (TypeCode 999), never a silent omission —
// the schema requires some identification element.
type IdentificationNode struct {
	SeqNum       uint64
	TypeCode     string
	Value        string
	Jurisdiction string // issuing country, non-domestic types only
}

// AssociationNode links a primary party to one dependent party by sequence
// number. This is the one place the document is a graph instead of a tree;
// the reference is an index, never an owning pointer.
type AssociationNode struct {
	SeqNum           uint64
	RoleCode         string
	AssociatedSeqNum uint64 // the dependent party's sequence number
}

// PartyNode is the document shape of one party, primary or dependent.
type PartyNode struct {
	SeqNum   uint64
	TypeCode string // activity party type code; empty for dependent parties
	RoleCode string // association role; empty for primary parties

	FirstName  string
	MiddleName string
	LastName   string // individual last name or entity/trust legal name
	Suffix     string
	DBAName    string
	Title      string
	Category   string // reporting person category

	FormationState     string
	FormationDate      string
	ExecutionDate      string
	RevocableIndicator string // "Y"/"N", trusts only

	DateOfBirth      string
	Phone            string
	Email            string
	OwnershipPercent string // beneficial owners only

	Identification *IdentificationNode
	Address        *AddressNode
	Associations   []AssociationNode

	// staging fields, filled while dependents wait for their sequence
	// numbers; cleared by attachDependents.
	pendingIndividual *entity.Individual
	pendingEntityName string
}

// encodeIdentification maps a domain identification to its node, applying
// the precedence rule: a domestic tax id wins, then a foreign id, then the
// explicit no-identification placeholder.
func encodeIdentification(seq *Sequencer, id *entity.Identification) *IdentificationNode {
	node := &IdentificationNode{SeqNum: seq.Next()}
	if id == nil || rerx.CleanText(id.Value) == "" {
		node.TypeCode = rerx.IDTypeNone
		return node
	}
	node.Value = rerx.CleanText(id.Value)
	switch id.Type {
	case entity.IdentificationSSN:
		node.TypeCode = rerx.IDTypeSSN
		node.Value = rerx.Digits(node.Value)
	case entity.IdentificationEIN:
		node.TypeCode = rerx.IDTypeEIN
		node.Value = rerx.Digits(node.Value)
	case entity.IdentificationPassport:
		node.TypeCode = rerx.IDTypePassport
		node.Jurisdiction = rerx.NormalizeCountry(id.Jurisdiction, "")
	case entity.IdentificationForeignTIN:
		node.TypeCode = rerx.IDTypeForeignTIN
		node.Jurisdiction = rerx.NormalizeCountry(id.Jurisdiction, "")
	default:
		node.TypeCode = rerx.IDTypeNone
		node.Value = ""
	}
	return node
}

// encodeAddress maps a domain address to its node, or nil when empty.
func encodeAddress(seq *Sequencer, a entity.Address) *AddressNode {
	if a.IsZero() {
		return nil
	}
	state := rerx.NormalizeState(a.State)
	return &AddressNode{
		SeqNum:  seq.Next(),
		Street:  rerx.CleanText(a.Street),
		City:    rerx.CleanText(a.City),
		State:   state,
		ZIP:     rerx.FormatZIP(a.ZIP),
		Country: rerx.NormalizeCountry(a.Country, state),
	}
}

func formatWireDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(wireDate)
}

// encodeIndividualFields fills the person fields shared by primary
// individuals and dependent persons (owners, signers, trustees, ...).
func encodeIndividualFields(seq *Sequencer, node *PartyNode, ind *entity.Individual) {
	node.FirstName = rerx.CleanText(ind.FirstName)
	node.MiddleName = rerx.CleanText(ind.MiddleName)
	node.LastName = rerx.CleanText(ind.LastName)
	node.Suffix = rerx.CleanText(ind.Suffix)
	node.DateOfBirth = formatWireDate(ind.DateOfBirth)
	node.Phone = rerx.FormatPhone(ind.Phone)
	node.Email = rerx.CleanText(ind.Email)
	node.Identification = encodeIdentification(seq, ind.Identification)
	node.Address = encodeAddress(seq, ind.Address)
}

// EncodeParty maps a normalized party record to its primary document node
// plus zero or more dependent associated-person nodes, assigning sequence
// numbers in emission order: primary subtree first, then one association
// node per dependent, then each dependent's subtree. Association nodes
// reference the (later) dependent sequence numbers.
func EncodeParty(seq *Sequencer, p *entity.Party, typeCode string) (*PartyNode, []*PartyNode, error) {
	if p == nil {
		return nil, nil, fmt.Errorf("rerx: nil party for type code %s", typeCode)
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	primary := &PartyNode{SeqNum: seq.Next(), TypeCode: typeCode}

	switch p.Kind {
	case entity.KindIndividual:
		encodeIndividualFields(seq, primary, p.Individual)
		return primary, nil, nil

	case entity.KindEntity:
		e := p.Entity
		primary.LastName = rerx.CleanText(e.LegalName)
		primary.DBAName = rerx.CleanText(e.DBAName)
		primary.FormationState = rerx.NormalizeState(e.FormationState)
		primary.FormationDate = formatWireDate(e.FormationDate)
		primary.Phone = rerx.FormatPhone(e.Phone)
		primary.Identification = encodeIdentification(seq, e.TaxID)
		primary.Address = encodeAddress(seq, e.Address)

		var deps []*PartyNode
		for i := range e.BeneficialOwners {
			deps = append(deps, ownerNode(&e.BeneficialOwners[i]))
		}
		for i := range e.SigningIndividuals {
			deps = append(deps, signerNode(&e.SigningIndividuals[i]))
		}
		attachDependents(seq, primary, deps)
		return primary, deps, nil

	case entity.KindTrust:
		t := p.Trust
		primary.LastName = rerx.CleanText(t.LegalName)
		primary.ExecutionDate = formatWireDate(t.ExecutionDate)
		primary.RevocableIndicator = revocableIndicator(t.IsRevocable)
		primary.Identification = encodeIdentification(seq, t.TaxID)
		primary.Address = encodeAddress(seq, t.Address)

		var deps []*PartyNode
		for i := range t.Trustees {
			deps = append(deps, trusteeNode(&t.Trustees[i]))
		}
		for i := range t.Settlors {
			deps = append(deps, roleNode(&t.Settlors[i].Individual, rerx.RoleSettlor))
		}
		for i := range t.Beneficiaries {
			deps = append(deps, roleNode(&t.Beneficiaries[i].Individual, rerx.RoleBeneficiary))
		}
		attachDependents(seq, primary, deps)
		return primary, deps, nil

	default:
		return nil, nil, fmt.Errorf("rerx: unknown party kind %q", p.Kind)
	}
}

// revocableIndicator encodes trust revocability as "Y"/"N". Unknown maps to
// "N" — a recorded design choice, not a guess to preserve elsewhere.
func revocableIndicator(isRevocable *bool) string {
	if isRevocable != nil && *isRevocable {
		return "Y"
	}
	return "N"
}

// ownerNode, signerNode, trusteeNode and roleNode build dependent nodes with
// their role set but no sequence numbers yet; attachDependents assigns them.
func ownerNode(bo *entity.BeneficialOwner) *PartyNode {
	n := &PartyNode{RoleCode: rerx.RoleBeneficialOwner}
	n.pendingIndividual = &bo.Individual
	if !bo.OwnershipPercent.IsZero() {
		n.OwnershipPercent = bo.OwnershipPercent.Round(2).StringFixed(2)
	}
	return n
}

func signerNode(si *entity.SigningIndividual) *PartyNode {
	n := &PartyNode{RoleCode: rerx.RoleSigningIndividual, Title: rerx.CleanText(si.Title)}
	n.pendingIndividual = &si.Individual
	return n
}

func trusteeNode(tr *entity.Trustee) *PartyNode {
	n := &PartyNode{RoleCode: rerx.RoleTrustee}
	if tr.EntityName != "" {
		n.pendingEntityName = rerx.CleanText(tr.EntityName)
		n.pendingIndividual = &tr.Individual // identification/address still apply
		return n
	}
	n.pendingIndividual = &tr.Individual
	return n
}

func roleNode(ind *entity.Individual, role string) *PartyNode {
	n := &PartyNode{RoleCode: role}
	n.pendingIndividual = ind
	return n
}

// attachDependents assigns sequence numbers in the documented order: one
// association node per dependent under the primary, then each dependent's
// own subtree. Forward references from association to dependent are legal;
// only assignment order must stay strictly increasing.
func attachDependents(seq *Sequencer, primary *PartyNode, deps []*PartyNode) {
	if len(deps) == 0 {
		primary.Associations = []AssociationNode{} // valid empty list, not an error
		return
	}
	primary.Associations = make([]AssociationNode, len(deps))
	for i, d := range deps {
		primary.Associations[i] = AssociationNode{SeqNum: seq.Next(), RoleCode: d.RoleCode}
	}
	for i, d := range deps {
		d.SeqNum = seq.Next()
		if d.pendingEntityName != "" {
			d.LastName = d.pendingEntityName
		}
		if ind := d.pendingIndividual; ind != nil {
			if d.pendingEntityName == "" {
				encodeIndividualFields(seq, d, ind)
			} else {
				// Corporate trustee: keep the entity name, take id and address.
				d.Identification = encodeIdentification(seq, ind.Identification)
				d.Address = encodeAddress(seq, ind.Address)
			}
			d.pendingIndividual = nil
		}
		d.pendingEntityName = ""
		primary.Associations[i].AssociatedSeqNum = d.SeqNum
	}
}

// EncodeReportingPerson builds the reporting-person party node.
func EncodeReportingPerson(seq *Sequencer, rp *entity.ReportingPerson) *PartyNode {
	node := &PartyNode{SeqNum: seq.Next(), TypeCode: rerx.PartyReportingPerson}
	node.LastName = rerx.CleanText(rp.LegalName)
	node.Category = rerx.CleanText(rp.Category)
	node.Phone = rerx.FormatPhone(rp.Phone)
	node.Email = rerx.CleanText(rp.Email)
	node.Identification = encodeIdentification(seq, rp.TaxID)
	node.Address = encodeAddress(seq, rp.Address)
	node.Associations = []AssociationNode{}
	return node
}

// EncodeTransmitter builds the transmitter party node. The transmitter id
// doubles as its identification value (domestic, EIN-shaped).
func EncodeTransmitter(seq *Sequencer, t *entity.Transmitter) *PartyNode {
	node := &PartyNode{SeqNum: seq.Next(), TypeCode: rerx.PartyTransmitter}
	node.LastName = rerx.CleanText(t.LegalName)
	node.Phone = rerx.FormatPhone(t.Phone)
	node.Identification = &IdentificationNode{
		SeqNum:   seq.Next(),
		TypeCode: rerx.IDTypeEIN,
		Value:    rerx.Digits(t.TransmitterID),
	}
	node.Address = encodeAddress(seq, t.Address)
	node.Associations = []AssociationNode{}
	return node
}

// EncodeTransmitterContact builds the transmitter-contact party node.
func EncodeTransmitterContact(seq *Sequencer, c *entity.TransmitterContact) *PartyNode {
	node := &PartyNode{SeqNum: seq.Next(), TypeCode: rerx.PartyTransmitterContact}
	node.LastName = rerx.CleanText(c.Name)
	node.Phone = rerx.FormatPhone(c.Phone)
	node.Email = rerx.CleanText(c.Email)
	node.Identification = &IdentificationNode{SeqNum: seq.Next(), TypeCode: rerx.IDTypeNone}
	node.Associations = []AssociationNode{}
	return node
}

// EncodeInstitution builds the financial-institution party nested under one
// value-transfer detail.
func EncodeInstitution(seq *Sequencer, name, taxID string) *PartyNode {
	node := &PartyNode{SeqNum: seq.Next(), RoleCode: rerx.RoleFinancialInst}
	node.LastName = rerx.CleanText(name)
	id := &entity.Identification{Type: entity.IdentificationEIN, Value: taxID}
	if rerx.CleanText(taxID) == "" {
		id = nil
	}
	node.Identification = encodeIdentification(seq, id)
	node.Associations = []AssociationNode{}
	return node
}

// formatAmount is the wire format for money: two fixed decimals.
func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
