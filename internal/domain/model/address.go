package model

import "time"

// 配送先住所
type Address struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64  `gorm:"not null;index" json:"user_id"`
	User       *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	//郵便番号
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`

	//都道府県・州
	Region string `gorm:"type:varchar(100);not null" json:"region"`

	//市区町村
	City string `gorm:"type:varchar(255);not null" json:"city"`

	//番地など
	Line1 string `gorm:"type:varchar(255);not null" json:"line1"`

	//建物名など
	Line2 string `gorm:"type:varchar(255);not null;default:''" json:"line2"`

	//宛名
	Name string `gorm:"type:varchar(255);not null" json:"name"`

	Phone string `gorm:"type:varchar(30);not null;default:''" json:"phone"`

	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// 注文に保存するテキスト表現
func (a Address) Format() string {
	s := a.Name + "\n" + a.Line1
	if a.Line2 != "" {
		s += "\n" + a.Line2
	}
	s += "\n" + a.City + ", " + a.Region + " " + a.PostalCode
	if a.Phone != "" {
		s += "\n" + a.Phone
	}
	return s
}
