package api

import (
	"time"

	"reelStudio/internal/database"
	"reelStudio/internal/pricing"
)

const dateLayout = "2006-01-02"

type imageResponse struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Description  string `json:"description"`
	SortOrder    int    `json:"sortOrder"`
}

func newImageResponse(img database.PortfolioImage) imageResponse {
	return imageResponse{
		ID:           img.ID,
		Title:        img.Title,
		Category:     img.Category,
		URL:          img.URL,
		ThumbnailURL: img.ThumbnailURL,
		Description:  img.Description,
		SortOrder:    img.SortOrder,
	}
}

type packageResponse struct {
	ID             uint     `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          int64    `json:"price"`
	PriceFormatted string   `json:"priceFormatted"`
	Duration       string   `json:"duration"`
	Features       []string `json:"features"`
	SortOrder      int      `json:"sortOrder"`
}

// newPackageResponse 解码 Features，非法数据返回空列表。
func newPackageResponse(p database.WeddingPackage) packageResponse {
	return packageResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		PriceFormatted: pricing.FormatCents(p.Price),
		Duration:       p.Duration,
		Features:       pricing.ParseFeatures(p.Features),
		SortOrder:      p.SortOrder,
	}
}

type addonResponse struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Price          int64  `json:"price"`
	PriceFormatted string `json:"priceFormatted"`
}

func newAddonResponse(a database.WeddingAddon) addonResponse {
	return addonResponse{
		ID:             a.ID,
		Name:           a.Name,
		Description:    a.Description,
		Category:       a.Category,
		Price:          a.Price,
		PriceFormatted: pricing.FormatCents(a.Price),
	}
}

type venueResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city"`
	State       string `json:"state"`
	Description string `json:"description"`
}

func newVenueResponse(v database.Venue) venueResponse {
	return venueResponse{ID: v.ID, Name: v.Name, City: v.City, State: v.State, Description: v.Description}
}

// quoteAddonResponse 中 Price 为生效价格：有覆盖价（含 0）时取覆盖价。
type quoteAddonResponse struct {
	AddonID        uint   `json:"addonId"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	BasePrice      int64  `json:"basePrice"`
	PriceOverride  *int64 `json:"priceOverride"`
	Price          int64  `json:"price"`
	PriceFormatted string `json:"priceFormatted"`
}

type quoteDetail struct {
	ID                  uint                 `json:"id"`
	UserID              uint                 `json:"userId"`
	Package             *packageResponse     `json:"package"`
	Venue               *venueResponse       `json:"venue"`
	VenueName           string               `json:"venueName"`
	EventDate           string               `json:"eventDate"`
	EventTime           string               `json:"eventTime"`
	Addons              []quoteAddonResponse `json:"addons"`
	TotalPrice          int64                `json:"totalPrice"`
	TotalPriceFormatted string               `json:"totalPriceFormatted"`
	Status              string               `json:"status"`
	PaymentStatus       string               `json:"paymentStatus"`
	SpecialRequests     string               `json:"specialRequests"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// newQuoteDetail 只整理已存储的数据，TotalPrice 不在读取时重算。
func newQuoteDetail(q database.WeddingQuote) quoteDetail {
	detail := quoteDetail{
		ID:                  q.ID,
		UserID:              q.UserID,
		VenueName:           q.VenueName,
		EventTime:           q.EventTime,
		Addons:              make([]quoteAddonResponse, 0, len(q.Addons)),
		TotalPrice:          q.TotalPrice,
		TotalPriceFormatted: pricing.FormatCents(q.TotalPrice),
		Status:              q.Status,
		PaymentStatus:       q.PaymentStatus,
		SpecialRequests:     q.SpecialRequests,
		CreatedAt:           q.CreatedAt,
		UpdatedAt:           q.UpdatedAt,
	}
	if !q.EventDate.IsZero() {
		detail.EventDate = q.EventDate.Format(dateLayout)
	}
	if q.Package.ID != 0 {
		pkg := newPackageResponse(q.Package)
		detail.Package = &pkg
	}
	if q.Venue != nil && q.Venue.ID != 0 {
		venue := newVenueResponse(*q.Venue)
		detail.Venue = &venue
		if detail.VenueName == "" {
			detail.VenueName = venue.Name
		}
	}
	for _, qa := range q.Addons {
		price := pricing.EffectivePrice(qa.Addon.Price, qa.PriceOverride)
		detail.Addons = append(detail.Addons, quoteAddonResponse{
			AddonID:        qa.AddonID,
			Name:           qa.Addon.Name,
			Category:       qa.Addon.Category,
			BasePrice:      qa.Addon.Price,
			PriceOverride:  qa.PriceOverride,
			Price:          price,
			PriceFormatted: pricing.FormatCents(price),
		})
	}
	return detail
}

type projectResponse struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Budget      int64         `json:"budget"`
	Status      string        `json:"status"`
	Progress    int           `json:"progress"`
	UserID      uint          `json:"userId"`
	Owner       *userResponse `json:"owner,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func newProjectResponse(p database.Project) projectResponse {
	resp := projectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Budget:      p.Budget,
		Status:      p.Status,
		Progress:    p.Progress,
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.User.ID != 0 {
		owner := newUserResponse(p.User)
		resp.Owner = &owner
	}
	return resp
}

type fileResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userId"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

func newFileResponse(f database.File) fileResponse {
	return fileResponse{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		URL:       f.URL,
		Type:      f.Type,
		Size:      f.Size,
		CreatedAt: f.CreatedAt,
	}
}

type questionnaireResponse struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"userId"`
	WeddingDate *string   `json:"weddingDate"`
	Region      string    `json:"region"`
	Tag         string    `json:"tag"`
	Responses   any       `json:"responses"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newQuestionnaireResponse(q database.WeddingQuestionnaire) questionnaireResponse {
	resp := questionnaireResponse{
		ID:        q.ID,
		UserID:    q.UserID,
		Region:    q.Region,
		Tag:       q.Tag,
		Responses: q.Responses,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
	if len(q.Responses) == 0 {
		resp.Responses = map[string]any{}
	}
	if q.WeddingDate != nil {
		d := q.WeddingDate.Format(dateLayout)
		resp.WeddingDate = &d
	}
	return resp
}

type leadResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func newLeadResponse(l database.Lead) leadResponse {
	return leadResponse{
		ID:        l.ID,
		Name:      l.Name,
		Email:     l.Email,
		Phone:     l.Phone,
		Service:   l.Service,
		Message:   l.Message,
		Status:    l.Status,
		CreatedAt: l.CreatedAt,
	}
}

// parseDate 接受 YYYY-MM-DD 或 RFC3339。
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
