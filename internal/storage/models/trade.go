// internal/storage/models/trade.go
package models

import "time"

// Trade is one committed buy or sell.
type Trade struct {
	BaseModel
	User        string    `gorm:"index;not null;type:varchar(44)"`
	Pool        string    `gorm:"index;not null;type:varchar(44)"`
	Mint        string    `gorm:"index;not null;type:varchar(44)"`
	Side        string    `gorm:"not null;type:varchar(4)"`
	TokenAmount uint64    `gorm:"type:numeric(20,0);not null"`
	SolAmount   uint64    `gorm:"type:numeric(20,0);not null"`
	GrossSol    uint64    `gorm:"type:numeric(20,0);not null"`
	Tax         uint64    `gorm:"type:numeric(20,0);not null;default:0"`
	Slot        uint64    `gorm:"index;not null"`
	ExecutedAt  time.Time `gorm:"index;not null"`
}

// TaxEvent is a paper-hand tax transfer to the treasury.
type TaxEvent struct {
	BaseModel
	User             string    `gorm:"index;not null;type:varchar(44)"`
	Pool             string    `gorm:"index;not null;type:varchar(44)"`
	Treasury         string    `gorm:"not null;type:varchar(44)"`
	SolOutBeforeTax  uint64    `gorm:"type:numeric(20,0);not null"`
	CostBasisForSale uint64    `gorm:"type:numeric(20,0);not null"`
	Tax              uint64    `gorm:"type:numeric(20,0);not null"`
	SolToUser        uint64    `gorm:"type:numeric(20,0);not null"`
	Untracked        bool      `gorm:"not null;default:false"`
	Slot             uint64    `gorm:"index;not null"`
	ExecutedAt       time.Time `gorm:"not null"`
}

// ConfigChange records every write of the curve configuration.
type ConfigChange struct {
	BaseModel
	Admin             string `gorm:"not null;type:varchar(44)"`
	Treasury          string `gorm:"not null;type:varchar(44)"`
	Fees              uint16 `gorm:"not null"`
	PaperhandTaxBps   uint16 `gorm:"not null"`
	DefaultVirtualSol uint64 `gorm:"type:numeric(20,0);not null"`
	Slot              uint64 `gorm:"not null"`
}
