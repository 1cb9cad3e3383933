package rerx

import (
	"github.com/tu-usuario/filing-pro/internal/domain/entity"
)

// FilingBuildContext carries everything the builder needs for one filing:
// the normalized transaction from the surrounding system plus the
// transmitter identity from configuration.
type FilingBuildContext struct {
	Transaction *entity.NormalizedTransaction
	Transmitter entity.Transmitter
	Contact     entity.TransmitterContact
}

// BuildSummary is the debug/trace summary the builder produces alongside the
// document. It exists for operational visibility only; it is not
// authoritative and must never be parsed by downstream logic.
type BuildSummary struct {
	PartyCount         int
	AssociationCount   int
	DetailCount        int
	NodeCount          uint64 // highest sequence number assigned
	TotalConsideration string
	DetailSum          string
	DetailSumMismatch  bool // non-fatal; multiple funding sources may over/undercount
}

// BuildResult is the in-memory document plus its trace summary.
type BuildResult struct {
	XML     []byte
	Summary BuildSummary
}
