package rerx

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
	"github.com/tu-usuario/filing-pro/pkg/rerx"
)

// ErrPreflight marks data that is incomplete or invalid before encoding.
// A filing that fails preflight is never transmitted.
var ErrPreflight = errors.New("rerx: filing failed preflight validation")

// Violation codes used by preflight and the structural validator.
const (
	ViolationTransmitterID      = "TRANSMITTER_ID"
	ViolationTransmitterTCC     = "TRANSMITTER_TCC"
	ViolationReportingPerson    = "REPORTING_PERSON_NAME"
	ViolationPropertyAddress    = "PROPERTY_ADDRESS"
	ViolationTransfereeMissing  = "TRANSFEREE_MISSING"
	ViolationTransfereeIdentity = "TRANSFEREE_UNIDENTIFIED"
	ViolationTransferorMissing  = "TRANSFEROR_MISSING"
	ViolationPartyInvalid       = "PARTY_INVALID"
)

// Violation is one concrete defect found in the filing data.
type Violation struct {
	Code    string
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Field, v.Message)
}

// PreflightError carries the full violation list: every detectable defect is
// reported together so a human fixes them in one pass, never just the first.
type PreflightError struct {
	Violations []Violation
}

func (e *PreflightError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("%v: %s", ErrPreflight, strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is(err, ErrPreflight) work on the typed error.
func (e *PreflightError) Unwrap() error { return ErrPreflight }

var tccRe = regexp.MustCompile(rerx.TCCPattern)

// Preflight validates the build context before any XML is emitted. It fails
// closed: any violation aborts the build, and the returned error lists all
// of them.
func Preflight(bctx *FilingBuildContext) error {
	var violations []Violation
	add := func(code, field, message string) {
		violations = append(violations, Violation{Code: code, Field: field, Message: message})
	}

	if bctx == nil || bctx.Transaction == nil {
		add(ViolationPartyInvalid, "transaction", "no normalized transaction supplied")
		return &PreflightError{Violations: violations}
	}
	txn := bctx.Transaction

	// Transmitter credentials: fixed-length numeric id, fixed-format TCC.
	id := rerx.Digits(bctx.Transmitter.TransmitterID)
	if len(id) != rerx.TransmitterIDLength || id != strings.TrimSpace(bctx.Transmitter.TransmitterID) {
		add(ViolationTransmitterID, "transmitter.transmitterID",
			fmt.Sprintf("transmitter id must be exactly %d digits", rerx.TransmitterIDLength))
	}
	if !tccRe.MatchString(bctx.Transmitter.TCC) {
		add(ViolationTransmitterTCC, "transmitter.tcc",
			"transmitter control code must match "+rerx.TCCPattern)
	}

	if rerx.CleanText(txn.ReportingPerson.LegalName) == "" {
		add(ViolationReportingPerson, "reportingPerson.legalName",
			"reporting person legal name is missing or a placeholder")
	}

	if addr := txn.Property.Address; rerx.CleanText(addr.Street) == "" || rerx.CleanText(addr.City) == "" {
		add(ViolationPropertyAddress, "property.address",
			"property address requires at least street and city")
	}

	if len(txn.Transferees) == 0 {
		add(ViolationTransfereeMissing, "transferees", "at least one transferee is required")
	}
	for i := range txn.Transferees {
		p := &txn.Transferees[i]
		field := fmt.Sprintf("transferees[%d]", i)
		// Entities and trusts must be identifiable; individuals may fall
		// back to the no-identification placeholder node.
		if p.Kind != entity.KindIndividual && !p.HasIdentification() {
			add(ViolationTransfereeIdentity, field,
				fmt.Sprintf("transferee %q carries no tax identification", p.DisplayName()))
			continue
		}
		if err := p.Validate(); err != nil {
			add(ViolationPartyInvalid, field, err.Error())
		}
	}

	if len(txn.Transferors) == 0 {
		add(ViolationTransferorMissing, "transferors", "at least one transferor is required")
	}
	for i := range txn.Transferors {
		if err := txn.Transferors[i].Validate(); err != nil {
			add(ViolationPartyInvalid, fmt.Sprintf("transferors[%d]", i), err.Error())
		}
	}

	if len(violations) > 0 {
		return &PreflightError{Violations: violations}
	}
	return nil
}
