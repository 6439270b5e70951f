package service

import (
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
)

// Fixed allowances per level. Custom codes carry their own.
var (
	premiumQuota  = model.QuotaSpec{DataQuotaMB: 5120, TimeQuotaMinutes: 1440}
	standardQuota = model.QuotaSpec{DataQuotaMB: 1024, TimeQuotaMinutes: 240}
	basicQuota    = model.QuotaSpec{DataQuotaMB: 100, TimeQuotaMinutes: 30}
)

// ResolveQuota maps a level to its data/time allowance. For custom codes
// the supplied spec is returned verbatim; passing a custom level without a
// spec is a programming error (creation validation enforces presence).
// Unknown levels fall back to the basic allowance.
func ResolveQuota(level model.QuotaLevel, custom *model.QuotaSpec) model.QuotaSpec {
	switch level {
	case model.LevelPremium:
		return premiumQuota
	case model.LevelStandard:
		return standardQuota
	case model.LevelBasic:
		return basicQuota
	case model.LevelCustom:
		return *custom
	}
	return basicQuota
}
