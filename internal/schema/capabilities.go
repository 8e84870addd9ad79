// Package schema negotiates the Sale write/read shape against the columns the
// database actually has. Databases provisioned before the customer/doctor and
// cashier columns existed keep working: optional fields are dropped on write
// and read back as NULL, while cashier attribution is mandatory and falls back
// to a legacy column or fails outright.
package schema

import (
	"sort"
	"strings"
)

// SalesTable is the physical relation the capabilities describe.
const SalesTable = "sales"

// Canonical attribution column written inline by the ORM insert.
const CashierColumn = "cashier_id"

// LegacyCashierColumns are attribution columns left behind by older schemas.
// They are written through AttributeSaleToCashier after the insert.
var LegacyCashierColumns = []string{"cashierId", "user_id"}

// Columns every sales table must have; their absence is not drift but a broken schema.
var requiredColumns = []string{"id", "invoice_no", "store_id", "total_amount", "net_amount", "payment_method", "created_at"}

// OptionalColumns may be missing on older databases and are silently dropped.
var OptionalColumns = []string{"customer_name", "customer_mobile", "customer_address", "doctor_name", "doctor_mobile"}

// AttributionMode says how a sale gets linked to the cashier that created it.
type AttributionMode int

const (
	AttributionNone AttributionMode = iota
	AttributionInline
	AttributionFallback
)

func (m AttributionMode) String() string {
	switch m {
	case AttributionInline:
		return "inline"
	case AttributionFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Capabilities is the negotiated shape of the sales relation.
type Capabilities struct {
	present     map[string]bool
	Attribution AttributionMode
	// AttributionColumn is the physical column holding the cashier id, if any.
	AttributionColumn string
}

// FromColumns builds capabilities from the physical column names of the sales table.
func FromColumns(columns []string) Capabilities {
	caps := Capabilities{present: make(map[string]bool, len(columns))}
	for _, c := range columns {
		caps.present[c] = true
	}
	switch {
	case caps.present[CashierColumn]:
		caps.Attribution = AttributionInline
		caps.AttributionColumn = CashierColumn
	default:
		for _, legacy := range LegacyCashierColumns {
			if caps.present[legacy] {
				caps.Attribution = AttributionFallback
				caps.AttributionColumn = legacy
				break
			}
		}
	}
	return caps
}

// Full returns capabilities for an up-to-date schema.
func Full() Capabilities {
	cols := append([]string{CashierColumn}, requiredColumns...)
	return FromColumns(append(cols, OptionalColumns...))
}

// Has reports whether the column is physically present.
func (c Capabilities) Has(column string) bool { return c.present[column] }

// MissingRequired lists required columns that are absent.
func (c Capabilities) MissingRequired() []string {
	var missing []string
	for _, col := range requiredColumns {
		if !c.present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// DroppedOptional lists optional columns that will be skipped on write.
func (c Capabilities) DroppedOptional() []string {
	var dropped []string
	for _, col := range OptionalColumns {
		if !c.present[col] {
			dropped = append(dropped, col)
		}
	}
	return dropped
}

// InsertColumns is the column list handed to gorm's Select for the sale INSERT.
// cashier_id is only included when attribution is inline.
func (c Capabilities) InsertColumns() []string {
	cols := append([]string(nil), requiredColumns...)
	if c.Attribution == AttributionInline {
		cols = append(cols, CashierColumn)
	}
	for _, col := range OptionalColumns {
		if c.present[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// SelectList is the read projection: absent optional columns are replaced by
// NULL placeholders and the attribution column is always exposed as cashier_id.
func (c Capabilities) SelectList(table string) []string {
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	list := make([]string, 0, len(requiredColumns)+len(OptionalColumns)+1)
	for _, col := range requiredColumns {
		list = append(list, prefix+col)
	}
	switch c.Attribution {
	case AttributionInline:
		list = append(list, prefix+CashierColumn)
	case AttributionFallback:
		list = append(list, prefix+quoteIdent(c.AttributionColumn)+" AS "+CashierColumn)
	default:
		list = append(list, "NULL AS "+CashierColumn)
	}
	for _, col := range OptionalColumns {
		if c.present[col] {
			list = append(list, prefix+col)
		} else {
			list = append(list, "NULL AS "+col)
		}
	}
	return list
}

// AttributionFilter is the WHERE fragment selecting sales attributed to one cashier.
// ok is false when the schema has no attribution column at all.
func (c Capabilities) AttributionFilter(table string) (string, bool) {
	if c.Attribution == AttributionNone {
		return "", false
	}
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	return prefix + quoteIdent(c.AttributionColumn) + " = ?", true
}

func (c Capabilities) String() string {
	cols := make([]string, 0, len(c.present))
	for col := range c.present {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return "attribution=" + c.Attribution.String() + " columns=" + strings.Join(cols, ",")
}

// quoteIdent double-quotes identifiers that need it (mixed-case legacy names).
// Both postgres and sqlite accept the ANSI form.
func quoteIdent(name string) string {
	if strings.ToLower(name) == name {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
