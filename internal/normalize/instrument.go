package normalize

import (
	"strings"

	"krx-market-lab/internal/idhash"
)

// InstrumentRow is a normalized instrument master record, ready for the
// instrument collector. Dates stay ISO strings at this stage: the collector
// owns strict coercion so that rows arriving from other feeders get the same
// treatment.
type InstrumentRow struct {
	InstrumentID  string
	ExternalCode  string
	MarketCode    string
	Name          string
	NameAbbr      string
	NameEng       string
	ListingDate   string
	DelistingDate string
	ListedShares  *int64
	SecurityGroup string
	SectorName    string
	StockType     string
	ParValue      *float64
}

// Instruments normalizes raw instrument master records for one market.
// Rows without a resolvable code or listing date are dropped.
func Instruments(rows []Row, marketCode string) []InstrumentRow {
	var normalized []InstrumentRow
	for _, row := range rows {
		code, ok := InstrumentCode(firstNonEmpty(row, instrumentCodeKeys))
		if !ok {
			continue
		}
		listingDate, ok := Date(firstNonEmpty(row, listingDateKeys))
		if !ok {
			continue
		}

		name := textOr(firstNonEmpty(row, instrumentNameKeys), code)

		normalized = append(normalized, InstrumentRow{
			InstrumentID:  idhash.InstrumentID(marketCode, code).String(),
			ExternalCode:  code,
			MarketCode:    marketCode,
			Name:          name,
			NameAbbr:      textOr(firstNonEmpty(row, nameAbbrKeys), ""),
			NameEng:       textOr(firstNonEmpty(row, nameEngKeys), ""),
			ListingDate:   listingDate.Format(isoDate),
			DelistingDate: dateStringOrEmpty(firstNonEmpty(row, delistingDateKeys)),
			ListedShares:  positiveIntPtr(firstNonEmpty(row, listedSharesKeys)),
			SecurityGroup: textOr(firstNonEmpty(row, securityGroupKeys), ""),
			SectorName:    textOr(firstNonEmpty(row, sectorNameKeys), ""),
			StockType:     textOr(firstNonEmpty(row, stockTypeKeys), ""),
			ParValue:      NumberPtr(firstNonEmpty(row, parValueKeys)),
		})
	}
	return normalized
}

const isoDate = "2006-01-02"

func textOr(raw any, def string) string {
	if raw == nil {
		return def
	}
	text := strings.TrimSpace(stringify(raw))
	if text == "" {
		return def
	}
	return text
}

func dateStringOrEmpty(raw any) string {
	d, ok := Date(raw)
	if !ok {
		return ""
	}
	return d.Format(isoDate)
}
