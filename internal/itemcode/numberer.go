// Package itemcode assigns hierarchical line numbers ("1", "1.1", "1.2", "2")
// to document items.
package itemcode

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	baseCode   = regexp.MustCompile(`^\d+$`)
	dottedCode = regexp.MustCompile(`^(\d+)\.(\d+)$`)
)

// Row is the part of an item payload that drives numbering.
type Row struct {
	RowID         int64
	ID            int64
	Title         string
	Model         string
	Quantity      float64
	Description   string
	Specification string
}

// IsBase reports whether the row is a priced line rather than a specification
// continuation of the line above it.
func (r Row) IsBase() bool {
	return strings.TrimSpace(r.Title) != "" || strings.TrimSpace(r.Model) != "" || r.Quantity > 0
}

// Existing is an item already stored on the document.
type Existing struct {
	ID   int64
	Code string
}

// Placement is the outcome for one payload row, in payload order.
type Placement struct {
	// TargetID is the stored item to overwrite; zero means insert.
	TargetID      int64
	Code          string
	Description   string
	Specification string
}

type numberer struct {
	taken  map[string]bool
	maxTop int64
	parent string
	seq    int64
}

func newNumberer(codes []string) *numberer {
	n := &numberer{taken: make(map[string]bool, len(codes))}
	for _, c := range codes {
		n.reserve(c)
	}
	return n
}

func (n *numberer) reserve(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	n.taken[code] = true
	if baseCode.MatchString(code) {
		if v, err := strconv.ParseInt(code, 10, 64); err == nil && v > n.maxTop {
			n.maxTop = v
		}
	}
}

func (n *numberer) nextBase() string {
	for {
		n.maxTop++
		code := strconv.FormatInt(n.maxTop, 10)
		if !n.taken[code] {
			n.reserve(code)
			n.parent = code
			n.seq = 1
			return code
		}
	}
}

func (n *numberer) nextChild() string {
	if n.parent == "" {
		n.nextBase()
	}
	for {
		code := n.parent + "." + strconv.FormatInt(n.seq, 10)
		n.seq++
		if !n.taken[code] {
			n.reserve(code)
			return code
		}
	}
}

// follow updates the running parent after a row kept its stored code.
func (n *numberer) follow(code string) {
	switch {
	case baseCode.MatchString(code):
		n.parent = code
		n.seq = 1
	case dottedCode.MatchString(code):
		m := dottedCode.FindStringSubmatch(code)
		if m[1] != n.parent {
			n.parent = m[1]
			n.seq = 1
		}
		if v, err := strconv.ParseInt(m[2], 10, 64); err == nil && v >= n.seq {
			n.seq = v + 1
		}
	}
}

func (n *numberer) fresh(r Row) string {
	if r.IsBase() {
		return n.nextBase()
	}
	return n.nextChild()
}

// Create numbers rows for a document that already holds existingCodes.
func Create(existingCodes []string, rows []Row) []Placement {
	n := newNumberer(existingCodes)
	out := make([]Placement, 0, len(rows))
	for _, r := range rows {
		p := texts(r)
		p.Code = n.fresh(r)
		out = append(out, p)
	}
	return out
}

// Update matches rows against stored items by row id, then id, then position
// (base rows only). Matched rows keep their stored code; unmatched rows are
// inserted with a fresh code. Stored items absent from rows are left alone.
func Update(existing []Existing, rows []Row) []Placement {
	byID := make(map[int64]Existing, len(existing))
	codes := make([]string, 0, len(existing))
	for _, e := range existing {
		byID[e.ID] = e
		codes = append(codes, e.Code)
	}
	n := newNumberer(codes)
	claimed := make(map[int64]bool, len(rows))

	out := make([]Placement, 0, len(rows))
	for idx, r := range rows {
		p := texts(r)
		target, ok := match(r, idx, existing, byID, claimed)
		if ok {
			claimed[target.ID] = true
			p.TargetID = target.ID
		}
		if code := strings.TrimSpace(target.Code); ok && code != "" {
			p.Code = code
			n.follow(code)
		} else {
			p.Code = n.fresh(r)
		}
		out = append(out, p)
	}
	return out
}

func match(r Row, idx int, existing []Existing, byID map[int64]Existing, claimed map[int64]bool) (Existing, bool) {
	for _, id := range []int64{r.RowID, r.ID} {
		if id == 0 {
			continue
		}
		if e, ok := byID[id]; ok && !claimed[e.ID] {
			return e, true
		}
	}
	if r.IsBase() && idx < len(existing) && !claimed[existing[idx].ID] {
		return existing[idx], true
	}
	return Existing{}, false
}

func texts(r Row) Placement {
	desc := strings.TrimSpace(r.Description)
	spec := strings.TrimSpace(r.Specification)
	if !r.IsBase() {
		if spec == "" {
			spec = desc
		}
		desc = ""
	}
	return Placement{Description: desc, Specification: spec}
}

// IsBaseCode reports whether code is a top-level number.
func IsBaseCode(code string) bool {
	return baseCode.MatchString(strings.TrimSpace(code))
}
