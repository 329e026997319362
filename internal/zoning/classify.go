package zoning

import (
	"strings"

	"appraisal/internal/types"
)

var districts = map[string]types.ZoningType{
	"AR": types.ZoningResidential,
	"B":  types.ZoningResidential,
	"R1": types.ZoningResidential,
	"R2": types.ZoningResidential,
	"CR": types.ZoningResidential,
	"C":  types.ZoningResidential,
	"D":  types.ZoningResidential,
	"UR": types.ZoningResidential,
	"MH": types.ZoningResidential,

	"E":  types.ZoningCommercial,
	"ER": types.ZoningCommercial,
	"F":  types.ZoningCommercial,
	"G":  types.ZoningCommercial,
	"H":  types.ZoningCommercial,
	"FR": types.ZoningCommercial,

	"AG": types.ZoningAgricultural,

	"I": types.ZoningIndustrial,
	"J": types.ZoningIndustrial,
	"K": types.ZoningIndustrial,
}

// Classify maps a Fort Worth district code such as "A-5", "MU-1" or "PD/E" to
// a ZoningType. Planned development codes classify by their base district.
func Classify(code string) (types.ZoningType, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if base, ok := strings.CutPrefix(c, "PD"); ok {
		base = strings.TrimLeft(base, "0123456789")
		c = strings.TrimLeft(base, "/- ")
	}
	if i := strings.IndexAny(c, " /("); i > 0 {
		c = c[:i]
	}
	switch {
	case c == "":
		return "", false
	case strings.HasPrefix(c, "A-"):
		return types.ZoningResidential, true
	case strings.HasPrefix(c, "MU-"):
		return types.ZoningCommercial, true
	}
	zt, ok := districts[c]
	return zt, ok
}
