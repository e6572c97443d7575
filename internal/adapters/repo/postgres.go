package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.AccountRepo   = (*Postgres)(nil)
	_ domain.ProfileRepo   = (*Postgres)(nil)
	_ domain.FeedbackRepo  = (*Postgres)(nil)
	_ domain.MessageRepo   = (*Postgres)(nil)
	_ domain.BillingRepo   = (*Postgres)(nil)
	_ domain.AnalyticsRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// GetAccountByEmail возвращает учётную запись по адресу почты.
func (p *Postgres) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var account domain.Account
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, email, name, email_verified, created_at
FROM accounts
WHERE lower(email) = lower($1)
`, email).Scan(&account.ID, &account.Email, &account.Name, &account.EmailVerified, &account.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "accounts_get_by_email", "accounts", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	return account, nil
}

// CreateVerifiedAccount создаёт учётную запись с подтверждённой почтой.
// Повторный вызов для того же адреса возвращает существующую запись.
func (p *Postgres) CreateVerifiedAccount(ctx context.Context, email, name string) (domain.Account, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var account domain.Account
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO accounts (id, email, name, email_verified)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
RETURNING id, email, name, email_verified, created_at
`, uuid.NewString(), email, name).Scan(&account.ID, &account.Email, &account.Name, &account.EmailVerified, &account.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "accounts_create", "accounts", start, err)
	if err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// GetProfile возвращает бизнес-профиль аккаунта.
func (p *Postgres) GetProfile(ctx context.Context, accountID string) (domain.BusinessProfile, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var (
		profile      domain.BusinessProfile
		businessName sql.NullString
		logoURL      sql.NullString
		reviewLink   sql.NullString
		qrLink       sql.NullString
		customerID   sql.NullString
		statsRaw     []byte
		lastLogin    sql.NullTime
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT account_id, email, name, business_name, logo_url, custom_color, google_review_link,
       qr_link, plan, stripe_customer_id, sms_message, sms_enabled, sms_delay_hours, stats,
       created_at, updated_at, last_login
FROM business_profiles
WHERE account_id = $1
`, accountID).Scan(&profile.AccountID, &profile.Email, &profile.Name, &businessName, &logoURL,
		&profile.CustomColor, &reviewLink, &qrLink, &profile.Plan, &customerID,
		&profile.SMSMessage, &profile.SMSEnabled, &profile.SMSDelayHours, &statsRaw,
		&profile.CreatedAt, &profile.UpdatedAt, &lastLogin)
	metrics.ObserveNetworkRequest("postgres", "profiles_get", "business_profiles", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BusinessProfile{}, domain.ErrProfileNotFound
		}
		return domain.BusinessProfile{}, err
	}
	profile.BusinessName = businessName.String
	profile.LogoURL = logoURL.String
	profile.GoogleReviewLink = reviewLink.String
	profile.QRLink = qrLink.String
	profile.CustomerID = customerID.String
	if lastLogin.Valid {
		ts := lastLogin.Time
		profile.LastLogin = &ts
	}
	if len(statsRaw) > 0 {
		if err := json.Unmarshal(statsRaw, &profile.Stats); err != nil {
			return domain.BusinessProfile{}, fmt.Errorf("decode stats: %w", err)
		}
	}
	return profile, nil
}

// UpsertProfile создаёт профиль либо обновляет поля, принадлежащие оплате:
// почту, имя, тариф, клиента провайдера и QR-ссылку. Настройки брендинга и
// рассылки, заданные владельцем, не затрагиваются.
func (p *Postgres) UpsertProfile(ctx context.Context, profile domain.BusinessProfile) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_profiles (account_id, email, name, plan, stripe_customer_id, qr_link)
VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''))
ON CONFLICT (account_id) DO UPDATE SET
    email = EXCLUDED.email,
    name = EXCLUDED.name,
    plan = EXCLUDED.plan,
    stripe_customer_id = EXCLUDED.stripe_customer_id,
    qr_link = COALESCE(EXCLUDED.qr_link, business_profiles.qr_link),
    updated_at = now()
`, profile.AccountID, profile.Email, profile.Name, profile.Plan, profile.CustomerID, profile.QRLink)
	metrics.ObserveNetworkRequest("postgres", "profiles_upsert", "business_profiles", start, err)
	return err
}

// UpdateReviewStats записывает пересчитанные счётчик и средний рейтинг.
// Слияние jsonb не затрагивает totalScans и smsSent.
func (p *Postgres) UpdateReviewStats(ctx context.Context, accountID string, totalReviews int, avgRating float64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE business_profiles
SET stats = stats || jsonb_build_object('totalReviews', $2::int, 'avgRating', $3::numeric),
    updated_at = now()
WHERE account_id = $1
`, accountID, totalReviews, avgRating)
	metrics.ObserveNetworkRequest("postgres", "profiles_update_review_stats", "business_profiles", start, err)
	return err
}

// IncrementScans атомарно увеличивает счётчик сканирований.
func (p *Postgres) IncrementScans(ctx context.Context, accountID string) error {
	return p.incrementStat(ctx, accountID, "totalScans", "profiles_increment_scans")
}

// IncrementSMSSent атомарно увеличивает счётчик отправленных сообщений.
func (p *Postgres) IncrementSMSSent(ctx context.Context, accountID string) error {
	return p.incrementStat(ctx, accountID, "smsSent", "profiles_increment_sms_sent")
}

func (p *Postgres) incrementStat(ctx context.Context, accountID, field, operation string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE business_profiles
SET stats = jsonb_set(stats, ARRAY[$2], to_jsonb(COALESCE((stats->>$2)::int, 0) + 1)),
    updated_at = now()
WHERE account_id = $1
`, accountID, field)
	metrics.ObserveNetworkRequest("postgres", operation, "business_profiles", start, err)
	return err
}

// InsertFeedback сохраняет отзыв и возвращает его с заполненным идентификатором.
func (p *Postgres) InsertFeedback(ctx context.Context, feedback domain.Feedback) (domain.Feedback, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	deviceInfo, err := json.Marshal(feedback.DeviceInfo)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("encode device info: %w", err)
	}

	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	start := time.Now()
	err = p.pool.QueryRow(ctx, `
INSERT INTO feedbacks (id, account_id, email, first_name, phone, consent, rating, comment, source, device_info)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, $7, NULLIF($8,''), $9, $10)
RETURNING created_at
`, feedback.ID, feedback.AccountID, feedback.Email, feedback.FirstName, feedback.Phone,
		feedback.Consent, feedback.Rating, feedback.Comment, feedback.Source, deviceInfo).Scan(&feedback.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "feedbacks_insert", "feedbacks", start, err)
	if err != nil {
		return domain.Feedback{}, err
	}
	return feedback, nil
}

// ListRatings возвращает рейтинги всех отзывов аккаунта.
func (p *Postgres) ListRatings(ctx context.Context, accountID string) ([]int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT rating FROM feedbacks WHERE account_id = $1
`, accountID)
	metrics.ObserveNetworkRequest("postgres", "feedbacks_list_ratings", "feedbacks", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// MarkFeedbackSMSSent помечает отзыв как обработанный SMS-рассылкой.
func (p *Postgres) MarkFeedbackSMSSent(ctx context.Context, feedbackID string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE feedbacks SET sms_sent = TRUE WHERE id = $1
`, feedbackID)
	metrics.ObserveNetworkRequest("postgres", "feedbacks_mark_sms_sent", "feedbacks", start, err)
	return err
}

// RecordScan увеличивает суточный счётчик сканирований.
func (p *Postgres) RecordScan(ctx context.Context, accountID string, day time.Time) error {
	return p.recordDaily(ctx, accountID, day, "scans", "analytics_record_scan")
}

// RecordReview увеличивает суточный счётчик отзывов.
func (p *Postgres) RecordReview(ctx context.Context, accountID string, day time.Time) error {
	return p.recordDaily(ctx, accountID, day, "reviews", "analytics_record_review")
}

func (p *Postgres) recordDaily(ctx context.Context, accountID string, day time.Time, column, operation string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO analytics_daily (account_id, day, %[1]s)
VALUES ($1, $2::date, 1)
ON CONFLICT (account_id, day) DO UPDATE SET %[1]s = analytics_daily.%[1]s + 1
`, column), accountID, day)
	metrics.ObserveNetworkRequest("postgres", operation, "analytics_daily", start, err)
	return err
}
