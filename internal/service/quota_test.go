package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
)

func TestResolveQuota(t *testing.T) {
	tests := []struct {
		level model.QuotaLevel
		want  model.QuotaSpec
	}{
		{model.LevelPremium, model.QuotaSpec{DataQuotaMB: 5120, TimeQuotaMinutes: 1440}},
		{model.LevelStandard, model.QuotaSpec{DataQuotaMB: 1024, TimeQuotaMinutes: 240}},
		{model.LevelBasic, model.QuotaSpec{DataQuotaMB: 100, TimeQuotaMinutes: 30}},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveQuota(tt.level, nil))
		})
	}
}

func TestResolveQuotaCustom(t *testing.T) {
	custom := model.QuotaSpec{DataQuotaMB: 2048, TimeQuotaMinutes: 720}
	assert.Equal(t, custom, ResolveQuota(model.LevelCustom, &custom))
}

func TestResolveQuotaUnknownLevelFallsBack(t *testing.T) {
	assert.Equal(t, basicQuota, ResolveQuota(model.QuotaLevel("platinum"), nil))
}
