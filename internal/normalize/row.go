package normalize

// Row is one raw provider record. Field naming varies by source and market;
// canonical fields are resolved through ordered candidate-key lists so that
// supporting a new provider variant is a data change, not new code.
type Row map[string]any

// Candidate keys per canonical field, first match wins. Explicit normalized
// names come first, provider-specific spellings after.
var (
	instrumentCodeKeys = []string{"instrument_id", "external_code", "isu_srt_cd", "ISU_SRT_CD", "short_code", "symbol"}
	listingDateKeys    = []string{"listing_date", "list_date", "LIST_DD", "list_dd", "bas_dt"}
	delistingDateKeys  = []string{"delisting_date", "delist_date", "DELIST_DD", "delist_dd"}
	listedSharesKeys   = []string{"listed_shares", "LIST_SHRS", "list_shrs"}
	instrumentNameKeys = []string{"instrument_name", "ISU_NM", "isu_nm", "ISU_ABBRV", "isu_abbrv", "name"}
	nameAbbrKeys       = []string{"instrument_name_abbr", "ISU_ABBRV", "isu_abbrv"}
	nameEngKeys        = []string{"instrument_name_eng", "ISU_ENG_NM", "isu_eng_nm"}
	securityGroupKeys  = []string{"security_group", "SECUGRP_NM", "secugrp_nm"}
	sectorNameKeys     = []string{"sector_name", "SECT_TP_NM", "sect_tp_nm"}
	stockTypeKeys      = []string{"stock_type", "KIND_STKCERT_TP_NM", "kind_stkcert_tp_nm"}
	parValueKeys       = []string{"par_value", "PARVAL", "parval"}

	dailyInstrumentKeys = []string{"instrument_id", "ISU_CD", "isu_cd", "isu_srt_cd", "ISU_SRT_CD", "external_code", "symbol"}
	dailyOpenKeys       = []string{"open", "TDD_OPNPRC", "tdd_opnprc", "stck_oprc"}
	dailyHighKeys       = []string{"high", "TDD_HGPRC", "tdd_hgprc", "stck_hgpr"}
	dailyLowKeys        = []string{"low", "TDD_LWPRC", "tdd_lwprc", "stck_lwpr"}
	dailyCloseKeys      = []string{"close", "TDD_CLSPRC", "tdd_clsprc", "stck_clpr"}
	volumeKeys          = []string{"volume", "ACC_TRDVOL", "acc_trdvol", "acml_vol"}
	turnoverKeys        = []string{"turnover_value", "ACC_TRDVAL", "acc_trdval", "acml_tr_pbmn"}
	marketValueKeys     = []string{"market_value", "MKTCAP", "mktcap", "lstg_stcnt"}
	priceChangeKeys     = []string{"price_change", "CMPPREVDD_PRC", "cmpprevdd_prc"}
	changeRateKeys      = []string{"change_rate", "FLUC_RT", "fluc_rt"}

	benchOpenKeys        = []string{"open", "OPNPRC_IDX", "OPNPRC", "opnprc", "TDD_OPNPRC", "tdd_opnprc"}
	benchHighKeys        = []string{"high", "HGPRC_IDX", "HGPRC", "hgprc", "TDD_HGPRC", "tdd_hgprc"}
	benchLowKeys         = []string{"low", "LWPRC_IDX", "LWPRC", "lwprc", "TDD_LWPRC", "tdd_lwprc"}
	benchCloseKeys       = []string{"close", "CLSPRC_IDX", "CLSPRC", "clsprc", "TDD_CLSPRC", "tdd_clsprc"}
	benchVolumeKeys      = []string{"volume", "ACC_TRDVOL", "acc_trdvol"}
	benchTurnoverKeys    = []string{"turnover_value", "ACC_TRDVAL", "acc_trdval"}
	benchMarketCapKeys   = []string{"market_cap", "MKTCAP", "mktcap"}
	benchPriceChangeKeys = []string{"price_change", "CMPPREVDD_IDX", "cmpprevdd_idx"}
	benchChangeRateKeys  = []string{"change_rate", "FLUC_RT", "fluc_rt"}
	indexNameKeys        = []string{"index_name", "IDX_NM", "idx_nm"}
)

// firstNonEmpty resolves a canonical field from the first candidate key with
// a present, non-nil, non-empty value.
func firstNonEmpty(row Row, keys []string) any {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && s == "" {
			continue
		}
		return value
	}
	return nil
}
