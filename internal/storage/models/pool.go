// internal/storage/models/pool.go
package models

import (
	"time"
)

// PoolSnapshot is the state of a pool after a launch, trade or graduation.
type PoolSnapshot struct {
	BaseModel
	Pool              string    `gorm:"index;not null;type:varchar(44)"`
	Mint              string    `gorm:"index;not null;type:varchar(44)"`
	Reason            string    `gorm:"not null;type:varchar(20)"`
	TokenReserve      uint64    `gorm:"type:numeric(20,0);not null"`
	SolReserve        uint64    `gorm:"type:numeric(20,0);not null"`
	VirtualSolReserve uint64    `gorm:"type:numeric(20,0);not null"`
	AmmPool           string    `gorm:"type:varchar(44)"`
	Slot              uint64    `gorm:"index;not null"`
	ObservedAt        time.Time `gorm:"index;not null"`
}

// Launch is a token launched through the launchpad.
type Launch struct {
	BaseModel
	Mint              string `gorm:"unique;not null;type:varchar(44)"`
	Pool              string `gorm:"not null;type:varchar(44)"`
	Creator           string `gorm:"index;not null;type:varchar(44)"`
	Name              string `gorm:"not null;type:varchar(32)"`
	Symbol            string `gorm:"index;not null;type:varchar(10)"`
	URI               string `gorm:"type:varchar(200)"`
	Decimals          uint8  `gorm:"not null"`
	InitialSupply     uint64 `gorm:"type:numeric(20,0);not null"`
	InitialSolReserve uint64 `gorm:"type:numeric(20,0);not null"`
	LaunchFee         uint64 `gorm:"type:numeric(20,0);not null"`
	Slot              uint64 `gorm:"not null"`
}
