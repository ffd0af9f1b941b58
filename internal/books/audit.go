package books

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/forecourt/internal/auditlog"
)

// ErrNoAuditLog is returned by AuditTrail when the configured auditor
// cannot be read back.
var ErrNoAuditLog = errors.New("no readable audit log configured")

// AuditReader is an Auditor whose trail can be read back. *auditlog.Log
// implements it.
type AuditReader interface {
	Read() ([]auditlog.Entry, error)
}

// AuditFilter selects audit entries. Zero fields match everything.
type AuditFilter struct {
	TenantID string
	Actor    string
	Action   string
	Subject  string
	// Last keeps only the most recent n matches when positive.
	Last int
}

func (f AuditFilter) match(e auditlog.Entry) bool {
	return (f.TenantID == "" || e.TenantID == f.TenantID) &&
		(f.Actor == "" || e.Actor == f.Actor) &&
		(f.Action == "" || e.Action == f.Action) &&
		(f.Subject == "" || e.Subject == f.Subject)
}

// AuditTrail returns recorded changes matching f, oldest first.
func (b *Books) AuditTrail(f AuditFilter) ([]auditlog.Entry, error) {
	r, ok := b.audit.(AuditReader)
	if !ok {
		return nil, ErrNoAuditLog
	}
	all, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading audit trail: %w", err)
	}
	var out []auditlog.Entry
	for _, e := range all {
		if f.match(e) {
			out = append(out, e)
		}
	}
	if f.Last > 0 && len(out) > f.Last {
		out = out[len(out)-f.Last:]
	}
	return out, nil
}
