package models

import (
	"strconv"
	"time"

	"github.com/jat99/PowerMonitor/internal/outage"
)

// SingleActiveOutageIndex is the partial unique index allowing one Active outage
const SingleActiveOutageIndex = "idx_outages_single_active"

// Outage is a stored outage event
type Outage struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Date          string     `gorm:"type:varchar(10);index;not null" json:"date"` // YYYY-MM-DD start day in the monitor timezone
	StartTime     time.Time  `gorm:"index;not null" json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Status        string     `gorm:"type:varchar(16);index;not null" json:"status"`
	VoltageBefore float64    `gorm:"not null" json:"voltage_before"`
	VoltageAfter  *float64   `json:"voltage_after"`
	Cause         *string    `gorm:"type:varchar(255)" json:"cause"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName overrides the table name for Outage
func (Outage) TableName() string {
	return "outages"
}

// ToRecord converts the row into a domain record. The status is parsed but
// the lifecycle invariant is left to the registry.
func (o *Outage) ToRecord() (outage.Record, error) {
	status, err := outage.ParseStatus(o.Status)
	if err != nil {
		return outage.Record{}, err
	}
	return outage.Record{
		ID:            strconv.FormatUint(uint64(o.ID), 10),
		StartTime:     o.StartTime,
		EndTime:       o.EndTime,
		Status:        status,
		VoltageBefore: o.VoltageBefore,
		VoltageAfter:  o.VoltageAfter,
		Cause:         o.Cause,
	}, nil
}

// ApplyRecord copies the lifecycle fields of r onto the row
func (o *Outage) ApplyRecord(r outage.Record, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	o.Date = r.StartTime.In(loc).Format(outage.DateLayout)
	o.StartTime = r.StartTime.UTC()
	o.EndTime = nil
	if r.EndTime != nil {
		end := r.EndTime.UTC()
		o.EndTime = &end
	}
	o.Status = r.Status.String()
	o.VoltageBefore = r.VoltageBefore
	o.VoltageAfter = r.VoltageAfter
	o.Cause = r.Cause
}
