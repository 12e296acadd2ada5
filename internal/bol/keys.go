package bol

import (
	"sort"
	"strings"
	"unicode"
)

// overflowKey holds previously bucketed extras in the raw form produced by Data.Raw.
const overflowKey = "overflow"

const (
	fieldBolNumber        = "bolNumber"
	fieldBookingNumber    = "bookingNumber"
	fieldCarrierReference = "carrierReference"
	fieldDateOfIssue      = "dateOfIssue"
	fieldVessel           = "vessel"
	fieldVoyage           = "voyage"
	fieldPortOfLoading    = "portOfLoading"
	fieldPortOfDischarge  = "portOfDischarge"
	fieldContainers       = "containers"

	fieldNumber     = "number"
	fieldSealNumber = "sealNumber"
	fieldType       = "type"
	fieldProduct    = "product"
	fieldQuantity   = "quantity"
	fieldName       = "name"
	fieldDensity    = "density"
	fieldLiters     = "liters"
	fieldGallons    = "gallons"
	fieldKilograms  = "kilograms"
)

var topLevelAliases = aliasIndex(map[string][]string{
	fieldBolNumber:        {"bol", "billoflading", "billofladingnumber", "blnumber", "bolno", "blno"},
	fieldBookingNumber:    {"booking", "bookingno", "bookingref"},
	fieldCarrierReference: {"carrierref", "carrierreferencenumber", "carrierrefno"},
	fieldDateOfIssue:      {"issuedate", "dateissued", "issuedon", "date"},
	fieldVessel:           {"vesselname", "ship"},
	fieldVoyage:           {"voyagenumber", "voyageno"},
	fieldPortOfLoading:    {"loadingport", "pol"},
	fieldPortOfDischarge:  {"dischargeport", "pod"},
	fieldContainers:       {"containerlist", "lineitems"},
})

var containerAliases = aliasIndex(map[string][]string{
	fieldNumber:     {"containernumber", "containerno", "container"},
	fieldSealNumber: {"seal", "sealno"},
	fieldType:       {"containertype", "size"},
	fieldProduct:    {"commodity"},
	fieldQuantity:   {"quantities"},
	fieldName:       {"productname"},
	fieldDensity:    {"productdensity"},
	fieldLiters:     {"litres", "lts", "ltrs"},
	fieldGallons:    {"gal", "gals"},
	fieldKilograms:  {"kg", "kgs", "kilos"},
})

var productAliases = aliasIndex(map[string][]string{
	fieldName:    {"productname", "description"},
	fieldDensity: {"specificgravity"},
})

var quantityAliases = aliasIndex(map[string][]string{
	fieldLiters:    {"litres", "lts", "ltrs"},
	fieldGallons:   {"gal", "gals"},
	fieldKilograms: {"kg", "kgs", "kilos"},
})

func aliasIndex(aliases map[string][]string) map[string]string {
	idx := make(map[string]string)
	for canonical, names := range aliases {
		idx[foldKey(canonical)] = canonical
		for _, n := range names {
			idx[foldKey(n)] = canonical
		}
	}
	return idx
}

// foldKey drops case and separators so bol_number, "BOL Number" and
// bolNumber compare equal.
func foldKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// assignment maps a set of raw keys onto canonical fields.
type assignment struct {
	fields  map[string]string // canonical -> winning raw key
	unknown []string          // raw keys with no canonical home, sorted
	losers  []string          // raw keys that lost an alias collision, sorted
}

func assign(keys []string, aliases map[string]string, reserved ...string) assignment {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	a := assignment{fields: make(map[string]string)}
	for _, k := range sorted {
		if containsString(reserved, k) {
			continue
		}
		canonical, ok := aliases[foldKey(k)]
		if !ok {
			a.unknown = append(a.unknown, k)
			continue
		}
		if _, taken := a.fields[canonical]; taken {
			a.losers = append(a.losers, k)
			continue
		}
		a.fields[canonical] = k
	}
	return a
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// canonical lists the assigned canonical names in sorted order.
func (a assignment) canonical() []string {
	names := make([]string, 0, len(a.fields))
	for name := range a.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
