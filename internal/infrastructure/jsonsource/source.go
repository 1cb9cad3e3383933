// Package jsonsource feeds normalized transactions from JSON files, one file
// per filing subject. It is the integration seam for business systems that
// drop transaction extracts on disk instead of calling the admin API.
package jsonsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
)

// Source reads <dir>/<subject id>.json into a normalized transaction.
type Source struct {
	dir string
}

// New builds a source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// NormalizedTransaction loads the transaction for the subject. The subject id
// is sanitized to a bare file name; path traversal in an id is an error.
func (s *Source) NormalizedTransaction(_ context.Context, subjectID string) (*entity.NormalizedTransaction, error) {
	if subjectID == "" || subjectID != filepath.Base(subjectID) || strings.ContainsAny(subjectID, "/\\") {
		return nil, fmt.Errorf("invalid subject id %q", subjectID)
	}

	path := filepath.Join(s.dir, subjectID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transaction %s: %w", subjectID, err)
	}

	var txn entity.NormalizedTransaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", subjectID, err)
	}
	if txn.SubjectID == "" {
		txn.SubjectID = subjectID
	}
	return &txn, nil
}
