package accounts

import (
	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
)

// validateNew checks the stand-alone rules of a new account. Group and
// NormalSide are expected to be defaulted already.
func validateNew(in NewAccount) error {
	var v bookerr.Violations
	if in.TenantID == "" {
		v = append(v, bookerr.Validation(bookerr.CodeInvalidInput, "tenantId", "tenant is required"))
	}
	if !codePattern.MatchString(in.Code) {
		v = append(v, bookerr.Validation(bookerr.CodeInvalidCode, "code", "code %q does not match %s", in.Code, codePattern))
	}
	if in.Name == "" {
		v = append(v, bookerr.Validation(bookerr.CodeInvalidInput, "name", "name is required"))
	}
	if !in.Type.Valid() {
		v = append(v, bookerr.Validation(bookerr.CodeInvalidInput, "type", "unknown account type %q", in.Type))
	} else if in.Group.Type() != in.Type {
		v = append(v, bookerr.Validation(bookerr.CodeInvalidInput, "group", "group %q does not belong to type %s", in.Group, in.Type))
	}
	if !in.NormalSide.Valid() {
		v = append(v, bookerr.Validation(bookerr.CodeMissingSide, "normalSide", "unknown side %q", in.NormalSide))
	}
	if !model.FitsScale(in.OpeningBalance) {
		v = append(v, bookerr.Validation(bookerr.CodePrecision, "openingBalance", "opening balance %s has more than %d decimal places", in.OpeningBalance, model.AmountScale))
	}
	if in.ParentCode != "" && in.ParentCode == in.Code {
		v = append(v, bookerr.Validation(bookerr.CodeCyclicHierarchy, "parentCode", "account %s cannot be its own parent", in.Code))
	}
	return v.Err()
}

// parentsFirst orders a batch so every account follows its parent when the
// parent is part of the same batch. Parents outside the batch are left to
// the store lookup.
func parentsFirst(batch []NewAccount) ([]NewAccount, error) {
	byCode := make(map[string]int, len(batch))
	for i, in := range batch {
		if _, dup := byCode[in.Code]; dup {
			return nil, bookerr.Validation(bookerr.CodeDuplicateCode, "code", "code %s appears more than once", in.Code)
		}
		byCode[in.Code] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)
	mark := make([]int, len(batch))
	out := make([]NewAccount, 0, len(batch))

	var visit func(i int) error
	visit = func(i int) error {
		switch mark[i] {
		case done:
			return nil
		case visiting:
			return bookerr.Validation(bookerr.CodeCyclicHierarchy, "parentCode", "account %s is its own ancestor", batch[i].Code)
		}
		mark[i] = visiting
		if p, ok := byCode[batch[i].ParentCode]; ok {
			if err := visit(p); err != nil {
				return err
			}
		}
		mark[i] = done
		out = append(out, batch[i])
		return nil
	}
	for i := range batch {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}
