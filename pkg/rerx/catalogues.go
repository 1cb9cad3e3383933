// Package rerx contains the fixed catalogues and formatting rules of the
// RERX e-filing form family (real estate report batch XML). The schema
// itself is a versioned external contract; the codes below are the subset
// this system emits.
package rerx

// FormTypeCode is the fixed form-type marker on the document root. Any other
// value is a structural-validation failure.
const FormTypeCode = "RERX"

// NsFc2 is the batch document namespace.
const NsFc2 = "www.fincen.gov/base"

// =============================================================================
// Activity party type codes — the five mandatory roles plus transferee/or.
// Every filing must carry exactly one transmitter, one transmitter contact,
// one reporting person, at least one transferee and at least one transferor.
// =============================================================================

const (
	PartyTransmitter        = "35"
	PartyTransmitterContact = "37"
	PartyReportingPerson    = "30"
	PartyTransferee         = "16"
	PartyTransferor         = "17"
)

// MandatoryPartyTypeCodes are the roles the structural validator requires.
var MandatoryPartyTypeCodes = []string{
	PartyTransmitter,
	PartyTransmitterContact,
	PartyReportingPerson,
	PartyTransferee,
	PartyTransferor,
}

// =============================================================================
// Association role codes — dependent parties linked to a primary party via a
// sequence-number reference (never containment).
// =============================================================================

const (
	RoleBeneficialOwner   = "101"
	RoleSigningIndividual = "102"
	RoleTrustee           = "103"
	RoleSettlor           = "104"
	RoleBeneficiary       = "105"
	RoleFinancialInst     = "110" // institution behind a payment detail
)

// =============================================================================
// Party identification type codes. Domestic ids carry no jurisdiction;
// foreign ids and passports require an issuing jurisdiction.
// =============================================================================

const (
	IDTypeSSN        = "1"   // SSN / ITIN (domestic, individuals)
	IDTypeEIN        = "2"   // EIN (domestic, entities and trusts)
	IDTypePassport   = "6"   // foreign passport, requires jurisdiction
	IDTypeForeignTIN = "9"   // foreign tax id, requires jurisdiction
	IDTypeNone       = "999" // explicit no-identification placeholder
)

// ValidIdentificationTypeCodes lists every code the builder may emit.
var ValidIdentificationTypeCodes = map[string]bool{
	IDTypeSSN: true, IDTypeEIN: true, IDTypePassport: true,
	IDTypeForeignTIN: true, IDTypeNone: true,
}

// =============================================================================
// Funding source classification for value-transfer details.
// =============================================================================

const (
	FundingBankWire        = "1"
	FundingCertifiedCheck  = "2"
	FundingPersonalCheck   = "3"
	FundingCash            = "4"
	FundingVirtualCurrency = "5"
	FundingOther           = "9"
)

// ValidFundingSourceCodes lists the accepted funding source classifications.
var ValidFundingSourceCodes = map[string]bool{
	FundingBankWire: true, FundingCertifiedCheck: true, FundingPersonalCheck: true,
	FundingCash: true, FundingVirtualCurrency: true, FundingOther: true,
}

// =============================================================================
// Transmitter credential formats, checked by preflight.
// =============================================================================

const (
	// TransmitterIDLength is the fixed length of the numeric transmitter id.
	TransmitterIDLength = 8
	// TCCPattern is the fixed transmitter control code format.
	TCCPattern = `^T[A-Z0-9]{7}$`
)
