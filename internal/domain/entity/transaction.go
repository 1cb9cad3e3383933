package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetsAttribute is the one property record per filing: the real estate the
// reported transfer concerns. Immutable after build.
type AssetsAttribute struct {
	Address          Address
	LegalDescription string
}

// ValueTransferDetail is one funding source of the consideration. The
// institution fields are optional; when an institution name is present the
// builder emits a nested financial-institution party for the detail.
type ValueTransferDetail struct {
	Amount            decimal.Decimal
	FundingSourceCode string
	InstitutionName   string
	InstitutionTaxID  string
}

// ValueTransferActivity is the total consideration plus its ordered funding
// details. The sum of detail amounts need not equal the total; a mismatch is
// flagged in the build trace but is not an error.
type ValueTransferActivity struct {
	TotalConsideration decimal.Decimal
	Details            []ValueTransferDetail
}

// DetailSum returns the sum of all detail amounts.
func (v ValueTransferActivity) DetailSum() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range v.Details {
		sum = sum.Add(d.Amount)
	}
	return sum
}

// ReportingPerson is the professional filing the report (closing agent,
// settlement agent, attorney).
type ReportingPerson struct {
	LegalName string
	Category  string // settlement agent, title insurer, attorney, ...
	TaxID     *Identification
	Address   Address
	Phone     string
	Email     string
}

// Transmitter identifies the filing party on every submission: a fixed-length
// numeric transmitter id plus the transmitter control code (TCC).
type Transmitter struct {
	TransmitterID string
	TCC           string
	LegalName     string
	Address       Address
	Phone         string
}

// TransmitterContact is the person the e-filing system calls back about a
// batch.
type TransmitterContact struct {
	Name  string
	Phone string
	Email string
}

// NormalizedTransaction is the collaborator interface consumed: the
// surrounding business system hands the core one of these per filing. The
// core never reads a persistence store for it.
type NormalizedTransaction struct {
	SubjectID       string // id of the filing subject (e.g. the report)
	ClosingDate     time.Time
	Property        AssetsAttribute
	ReportingPerson ReportingPerson
	Transferees     []Party
	Transferors     []Party
	ValueTransfer   ValueTransferActivity
}
