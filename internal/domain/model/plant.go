package model

import "time"

type CareFrequency string

const (
	FrequencyDaily    CareFrequency = "daily"
	FrequencyWeekly   CareFrequency = "weekly"
	FrequencyBiweekly CareFrequency = "biweekly"
	FrequencyMonthly  CareFrequency = "monthly"
)

// 次回予定までの日数
func (f CareFrequency) Interval() (time.Duration, bool) {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour, true
	case FrequencyWeekly:
		return 7 * 24 * time.Hour, true
	case FrequencyBiweekly:
		return 14 * 24 * time.Hour, true
	case FrequencyMonthly:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// ユーザーの植物。子（メモ・ケア・成長記録）はFKでカスケード削除
type UserPlant struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64          `gorm:"not null;index" json:"-"`
	User          *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Name          string         `gorm:"type:varchar(100);not null" json:"name"`
	Description   string         `gorm:"type:text;not null;default:''" json:"description"`
	ImageURL      string         `gorm:"type:varchar(500);not null;default:''" json:"image_url"`
	Notes         []PlantNote    `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
	CareRoutines  []CareRoutine  `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE" json:"care_routines,omitempty"`
	GrowthRecords []GrowthRecord `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE" json:"growth_records,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type PlantNote struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlantID   int64     `gorm:"not null;index" json:"plant_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CareRoutine struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	PlantID       int64         `gorm:"not null;index" json:"plant_id"`
	Task          string        `gorm:"type:varchar(100);not null" json:"task"`
	Frequency     CareFrequency `gorm:"type:varchar(20);not null" json:"frequency"`
	Instructions  string        `gorm:"type:text;not null;default:''" json:"instructions"`
	LastPerformed *time.Time    `json:"last_performed"`
	NextDue       *time.Time    `json:"next_due"`
}

// 高さ・幅はcm
type GrowthRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlantID    int64     `gorm:"not null;index" json:"plant_id"`
	Height     *float64  `json:"height"`
	Width      *float64  `json:"width"`
	NumLeaves  *int      `json:"num_leaves"`
	Notes      string    `gorm:"type:text;not null;default:''" json:"notes"`
	RecordedAt time.Time `gorm:"not null;autoCreateTime" json:"recorded_at"`
}
