package models

import (
	"time"
)

// DefaultMeterID is used for readings that do not name a meter
const DefaultMeterID = "main"

// Measurement is one electrical reading of a meter
type Measurement struct {
	Timestamp time.Time `gorm:"primaryKey;not null" json:"timestamp"`
	MeterID   string    `gorm:"type:varchar(64);primaryKey;not null" json:"meter_id"`
	Voltage   float64   `json:"voltage"`
	Current   float64   `json:"current"`
	Power     float64   `json:"power"`
	Energy    float64   `json:"energy"`
	PF        float64   `gorm:"column:pf" json:"pf"`
}

// TableName overrides the table name for Measurement
func (Measurement) TableName() string {
	return "measurements"
}
