package receivables

import (
	"context"
	"sort"

	"github.com/odyssey-erp/receivables/internal/odoo"
)

// Relation names used in lookups and observer events.
const (
	RelationPartner = "partner"
	RelationAccount = "account"
	RelationMove    = "move"
)

// Relations holds the secondary records referenced by a batch of lines.
type Relations struct {
	Partners map[int64]odoo.Record
	Accounts map[int64]odoo.Record
	Moves    map[int64]odoo.Record
}

type relationSpec struct {
	name     string
	field    string
	model    string
	attempts []Attempt
	target   *map[int64]odoo.Record
}

// resolveRelations issues at most one read per relation for the distinct ids
// referenced by lines.
func resolveRelations(ctx context.Context, rpc RPC, obs Observer, lines []odoo.Record) (Relations, error) {
	rel := Relations{
		Partners: map[int64]odoo.Record{},
		Accounts: map[int64]odoo.Record{},
		Moves:    map[int64]odoo.Record{},
	}
	specs := []relationSpec{
		{name: RelationPartner, field: "partner_id", model: ModelPartner, attempts: partnerAttempts, target: &rel.Partners},
		{name: RelationAccount, field: "account_id", model: ModelAccount, attempts: accountAttempts, target: &rel.Accounts},
		{name: RelationMove, field: "move_id", model: ModelMove, attempts: moveAttempts, target: &rel.Moves},
	}
	for _, spec := range specs {
		ids := collectIDs(lines, spec.field)
		if len(ids) == 0 {
			continue
		}
		obs.LookupIssued(spec.name, len(ids))
		records, _, err := readWithFallback(ctx, rpc, obs, spec.model, ids, spec.attempts)
		if err != nil {
			return Relations{}, err
		}
		for _, rec := range records {
			if id := rec.ID(); id > 0 {
				(*spec.target)[id] = rec
			}
		}
	}
	return rel, nil
}

// collectIDs returns the sorted distinct pair ids stored under field.
func collectIDs(records []odoo.Record, field string) []int64 {
	seen := make(map[int64]struct{}, len(records))
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		id, ok := rec.Ref(field).ID()
		if !ok || id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// lookup returns the record referenced by ref, or an empty record.
func lookup(records map[int64]odoo.Record, ref odoo.Reference) odoo.Record {
	id, ok := ref.ID()
	if !ok {
		return odoo.Record{}
	}
	if rec, found := records[id]; found {
		return rec
	}
	return odoo.Record{}
}
