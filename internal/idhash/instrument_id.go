// Package idhash derives deterministic surrogate identifiers so that
// re-ingesting the same entities is idempotent without a storage lookup.
package idhash

import (
	"strings"

	"github.com/google/uuid"
)

// Fixed namespaces. Changing either would re-key every persisted row.
var (
	instrumentNamespace = uuid.MustParse("0d9a6af7-e603-4c9d-8ca6-e7f6af20d9e0")
	coerceNamespace     = uuid.MustParse("7c76f04a-fca0-494d-96f8-6a68f1f21e84")
)

// InstrumentID computes the deterministic surrogate id for an instrument.
// Formula: UUIDv5(namespace, "MARKET_CODE:EXTERNAL_CODE") with both parts
// uppercased. Stable across runs and processes.
func InstrumentID(marketCode, externalCode string) uuid.UUID {
	name := strings.ToUpper(marketCode) + ":" + strings.ToUpper(externalCode)
	return uuid.NewSHA1(instrumentNamespace, []byte(name))
}

// CoerceUUID maps an arbitrary identifier into UUID space. Valid UUID strings
// parse as themselves; any other non-empty string hashes deterministically, so
// callers feeding ad-hoc ids (fixtures, external references) always converge
// on the same UUID. Returns false for empty input.
func CoerceUUID(raw string) (uuid.UUID, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uuid.Nil, false
	}
	if parsed, err := uuid.Parse(trimmed); err == nil {
		return parsed, true
	}
	return uuid.NewSHA1(coerceNamespace, []byte(trimmed)), true
}
