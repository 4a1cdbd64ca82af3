package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CopyStatus string

const (
	CopyActive  CopyStatus = "active"
	CopyStopped CopyStatus = "stopped"
)

type CopyRelationship struct {
	ID                int64           `json:"id"`
	CopierID          int64           `json:"copier_id"`
	MasterID          int64           `json:"master_id"`
	Amount            decimal.Decimal `json:"amount"`
	AllocationPercent int             `json:"allocation_percent"`
	AutoCopy          bool            `json:"auto_copy"`
	CopyOpenPositions bool            `json:"copy_open_positions"`
	StartDate         time.Time       `json:"start_date"`
	Status            CopyStatus      `json:"status"`
}

func ValidAllocationPercent(p int) bool {
	return p >= 1 && p <= 100
}
