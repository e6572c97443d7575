package domain

import "time"

// Account описывает учётную запись владельца бизнеса.
type Account struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
	CreatedAt     time.Time
}

// ProfileStats содержит агрегированную статистику профиля.
type ProfileStats struct {
	TotalScans   int     `json:"totalScans"`
	TotalReviews int     `json:"totalReviews"`
	AvgRating    float64 `json:"avgRating"`
	SMSSent      int     `json:"smsSent"`
}

// BusinessProfile описывает бизнес-профиль аккаунта.
type BusinessProfile struct {
	AccountID        string
	Email            string
	Name             string
	BusinessName     string
	LogoURL          string
	CustomColor      string
	GoogleReviewLink string
	QRLink           string
	Plan             Plan
	CustomerID       string
	SMSMessage       string
	SMSEnabled       bool
	SMSDelayHours    int
	Stats            ProfileStats
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastLogin        *time.Time
}

// FeedbackSource описывает канал, через который пришёл отзыв.
type FeedbackSource string

const (
	// FeedbackSourceQR — отзыв по QR-коду.
	FeedbackSourceQR FeedbackSource = "qr"
	// FeedbackSourceSMS — отзыв по ссылке из SMS.
	FeedbackSourceSMS FeedbackSource = "sms"
	// FeedbackSourceWiFi — отзыв с портала гостевого Wi-Fi.
	FeedbackSourceWiFi FeedbackSource = "wifi"
	// FeedbackSourceManual — отзыв, занесённый вручную.
	FeedbackSourceManual FeedbackSource = "manual"
)

// DeviceInfo содержит метаданные устройства, зафиксированные сервером.
type DeviceInfo struct {
	UserAgent string    `json:"userAgent"`
	Timestamp time.Time `json:"timestamp"`
}

// Feedback представляет один отзыв конечного клиента.
type Feedback struct {
	ID                string
	AccountID         string
	Email             string
	FirstName         string
	Phone             string
	Consent           bool
	Rating            int
	Comment           string
	Source            FeedbackSource
	DeviceInfo        DeviceInfo
	Processed         bool
	PublishedToGoogle bool
	SMSSent           bool
	SMSScheduledAt    *time.Time
	Sentiment         string
	Keywords          []string
	CreatedAt         time.Time
	ProcessedAt       *time.Time
}

// DailyStat хранит суточный срез активности профиля.
type DailyStat struct {
	AccountID string
	Day       time.Time
	Scans     int
	Reviews   int
}
