package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 角色取值，只做相等比较，没有层级关系。
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name               string `gorm:"size:128"`
	Email              string `gorm:"uniqueIndex;size:255"`
	PasswordHash       string `gorm:"size:255"`
	Role               string `gorm:"size:16;default:user"`
	MustChangePassword bool   `gorm:"default:false"`
}

// Project 表示客户的视频制作项目，Status 为自由字符串。
type Project struct {
	gorm.Model
	Title       string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Budget      int64
	Status      string `gorm:"size:64"`
	Progress    int
	UserID      uint `gorm:"index"`
	User        User `gorm:"constraint:OnDelete:CASCADE"`
}

// WeddingPackage 是婚礼套餐，Features 为 JSON 编码的字符串数组，读取时解码。
type WeddingPackage struct {
	gorm.Model
	Name        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Price       int64
	Duration    string `gorm:"size:64"`
	Features    string `gorm:"type:text"`
	SortOrder   int
}

// WeddingAddon 是可加购的附加服务，Price 以分为单位。
type WeddingAddon struct {
	gorm.Model
	Name        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Category    string `gorm:"size:64;index"`
	Price       int64
}

// Venue 是场地查询表。
type Venue struct {
	gorm.Model
	Name        string `gorm:"size:255"`
	City        string `gorm:"size:128"`
	State       string `gorm:"size:64;index"`
	Description string `gorm:"type:text"`
}

// WeddingQuote 是一次报价结算。Status/PaymentStatus 为调用方给出的任意字符串。
type WeddingQuote struct {
	gorm.Model
	UserID          uint `gorm:"index"`
	PackageID       uint `gorm:"index"`
	Package         WeddingPackage
	VenueID         *uint
	Venue           *Venue
	VenueName       string `gorm:"size:255"`
	EventDate       time.Time
	EventTime       string `gorm:"size:32"`
	TotalPrice      int64
	Status          string `gorm:"size:64"`
	PaymentStatus   string `gorm:"size:64"`
	SpecialRequests string `gorm:"type:text"`
	Addons          []QuoteAddon `gorm:"foreignKey:QuoteID"`
}

// QuoteAddon 关联报价与附加服务；PriceOverride 为 nil 时使用附加服务原价。
type QuoteAddon struct {
	gorm.Model
	QuoteID       uint `gorm:"index"`
	AddonID       uint `gorm:"index"`
	Addon         WeddingAddon
	PriceOverride *int64
}

// WeddingQuestionnaire 每个用户一份，通过 user_id 唯一索引 upsert。
type WeddingQuestionnaire struct {
	gorm.Model
	UserID      uint `gorm:"uniqueIndex"`
	WeddingDate *time.Time
	Region      string         `gorm:"size:128;index"`
	Tag         string         `gorm:"size:64;index"`
	Responses   datatypes.JSON `gorm:"type:jsonb"`
}

// File 表示用户上传的资源，ObjectKey 指向存储后端中的对象。
type File struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	Name      string `gorm:"size:255"`
	URL       string `gorm:"size:1024"`
	Type      string `gorm:"size:128"`
	Size      int64
	ObjectKey string `gorm:"size:512"`
}

// PortfolioImage 是官网作品集图片。
type PortfolioImage struct {
	gorm.Model
	Title        string `gorm:"size:255"`
	Category     string `gorm:"size:64;index"`
	URL          string `gorm:"size:1024"`
	ThumbnailURL string `gorm:"size:1024"`
	Description  string `gorm:"type:text"`
	SortOrder    int
}

// Lead 是官网联系表单提交的线索。
type Lead struct {
	gorm.Model
	Name    string `gorm:"size:255"`
	Email   string `gorm:"size:255"`
	Phone   string `gorm:"size:64"`
	Service string `gorm:"size:128"`
	Message string `gorm:"type:text"`
	Status  string `gorm:"size:64"`
}

// AllModels 返回需要迁移的全部模型，api 与 admin 命令共用。
func AllModels() []any {
	return []any{
		&User{},
		&Project{},
		&WeddingPackage{},
		&WeddingAddon{},
		&Venue{},
		&WeddingQuote{},
		&QuoteAddon{},
		&WeddingQuestionnaire{},
		&File{},
		&PortfolioImage{},
		&Lead{},
	}
}
