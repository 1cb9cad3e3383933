package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PartyKind discriminates the closed set of party variants. Exactly one of
// the variant structs on Party is populated for a given kind; code that
// branches on kind switches exhaustively and treats anything else as a bug.
type PartyKind string

const (
	KindIndividual PartyKind = "individual"
	KindEntity     PartyKind = "entity"
	KindTrust      PartyKind = "trust"
)

// IdentificationType tags an identification by its issuing regime.
type IdentificationType string

const (
	IdentificationSSN        IdentificationType = "ssn"         // SSN / ITIN
	IdentificationEIN        IdentificationType = "ein"         // EIN
	IdentificationForeignTIN IdentificationType = "foreign-tin" // foreign tax id
	IdentificationPassport   IdentificationType = "passport"    // foreign passport
)

// IsDomestic reports whether the identification is a domestic tax id.
func (t IdentificationType) IsDomestic() bool {
	return t == IdentificationSSN || t == IdentificationEIN
}

// RequiresJurisdiction reports whether the identification must carry an
// issuing jurisdiction. Domestic ids leave jurisdiction blank; this is
// inferred from the type, not from a separate flag.
func (t IdentificationType) RequiresJurisdiction() bool {
	return !t.IsDomestic()
}

// Identification is a tagged id number with an optional issuing jurisdiction
// (required only for non-domestic types).
type Identification struct {
	Type         IdentificationType
	Value        string
	Jurisdiction string // ISO country for foreign TIN / passport
}

// Address is a postal address as captured from the normalized transaction.
type Address struct {
	Street  string
	City    string
	State   string
	ZIP     string
	Country string
}

// IsZero reports whether no address component is present.
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.ZIP == "" && a.Country == ""
}

// Individual is the natural-person party variant.
type Individual struct {
	FirstName      string
	LastName       string
	MiddleName     string
	Suffix         string
	DateOfBirth    *time.Time
	Identification *Identification
	Address        Address
	Phone          string
	Email          string
}

// BeneficialOwner is a dependent person owning part of an entity transferee.
type BeneficialOwner struct {
	Individual
	OwnershipPercent decimal.Decimal
}

// SigningIndividual is a dependent person signing for an entity.
type SigningIndividual struct {
	Individual
	Title string
}

// Trustee, Settlor and Beneficiary are dependent parties of a trust. A
// trustee may itself be an entity (corporate trustee).
type Trustee struct {
	Individual
	EntityName string // set when the trustee is an entity, not a person
}

type Settlor struct {
	Individual
}

type Beneficiary struct {
	Individual
}

// LegalEntity is the legal-entity party variant. The tax id invariant: a
// legal entity carries either a domestic TaxID or a foreign id with a
// country — never neither.
type LegalEntity struct {
	LegalName          string
	DBAName            string
	FormationState     string
	FormationDate      *time.Time
	TaxID              *Identification
	Address            Address
	Phone              string
	BeneficialOwners   []BeneficialOwner
	SigningIndividuals []SigningIndividual
}

// Trust is the trust party variant. Same tax id invariant as LegalEntity.
type Trust struct {
	LegalName     string
	ExecutionDate *time.Time
	IsRevocable   *bool // nil means unknown; encoded as "N"
	TaxID         *Identification
	Address       Address
	Trustees      []Trustee
	Settlors      []Settlor
	Beneficiaries []Beneficiary
}

// Party is the closed tagged union over the three party kinds.
type Party struct {
	Kind       PartyKind
	Individual *Individual
	Entity     *LegalEntity
	Trust      *Trust
}

// Validate checks that exactly the variant matching Kind is populated and
// that entity/trust parties honor the tax id invariant.
func (p *Party) Validate() error {
	switch p.Kind {
	case KindIndividual:
		if p.Individual == nil || p.Entity != nil || p.Trust != nil {
			return fmt.Errorf("party: kind %q must populate exactly the Individual variant", p.Kind)
		}
		return nil
	case KindEntity:
		if p.Entity == nil || p.Individual != nil || p.Trust != nil {
			return fmt.Errorf("party: kind %q must populate exactly the Entity variant", p.Kind)
		}
		return validateTaxID(p.Entity.TaxID, "entity "+p.Entity.LegalName)
	case KindTrust:
		if p.Trust == nil || p.Individual != nil || p.Entity != nil {
			return fmt.Errorf("party: kind %q must populate exactly the Trust variant", p.Kind)
		}
		return validateTaxID(p.Trust.TaxID, "trust "+p.Trust.LegalName)
	default:
		return fmt.Errorf("party: unknown kind %q", p.Kind)
	}
}

// validateTaxID enforces: domestic tax id, or foreign id with a country,
// never neither.
func validateTaxID(id *Identification, who string) error {
	if id == nil || id.Value == "" {
		return fmt.Errorf("party: %s has no tax identification", who)
	}
	if id.Type.RequiresJurisdiction() && id.Jurisdiction == "" {
		return fmt.Errorf("party: %s has a foreign tax id without a country", who)
	}
	return nil
}

// DisplayName returns a human-readable name for logs and error messages.
func (p *Party) DisplayName() string {
	switch p.Kind {
	case KindIndividual:
		if p.Individual == nil {
			return ""
		}
		return p.Individual.FirstName + " " + p.Individual.LastName
	case KindEntity:
		if p.Entity == nil {
			return ""
		}
		return p.Entity.LegalName
	case KindTrust:
		if p.Trust == nil {
			return ""
		}
		return p.Trust.LegalName
	default:
		return ""
	}
}

// HasIdentification reports whether the party carries any usable id at all.
func (p *Party) HasIdentification() bool {
	switch p.Kind {
	case KindIndividual:
		return p.Individual != nil && p.Individual.Identification != nil &&
			p.Individual.Identification.Value != ""
	case KindEntity:
		return p.Entity != nil && p.Entity.TaxID != nil && p.Entity.TaxID.Value != ""
	case KindTrust:
		return p.Trust != nil && p.Trust.TaxID != nil && p.Trust.TaxID.Value != ""
	default:
		return false
	}
}
