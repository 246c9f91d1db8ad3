package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoachGroup holds the revenue split percentages of a coach cohort
type CoachGroup struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Name               string          `gorm:"size:50;uniqueIndex;not null" json:"name"`
	LeadCostPercent    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"lead_cost_percent"`
	CoachCostPercent   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"coach_cost_percent"`
	PlatformFeePercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"platform_fee_percent"`
	IsInternal         bool            `gorm:"not null;default:false" json:"is_internal"`
	Description        *string         `gorm:"type:text" json:"description"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name for CoachGroup
func (CoachGroup) TableName() string {
	return "coach_groups"
}

var hundred = decimal.NewFromInt(100)

// PercentagesValid returns true if every percentage is within [0,100] and they sum to exactly 100
func (g *CoachGroup) PercentagesValid() bool {
	for _, p := range []decimal.Decimal{g.LeadCostPercent, g.CoachCostPercent, g.PlatformFeePercent} {
		if p.IsNegative() || p.GreaterThan(hundred) {
			return false
		}
	}
	return g.LeadCostPercent.Add(g.CoachCostPercent).Add(g.PlatformFeePercent).Equal(hundred)
}
