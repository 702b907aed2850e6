package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CurrencyPKR = "PKR"
	CurrencyUSD = "USD"
)

func ValidCurrency(c string) bool {
	return c == CurrencyPKR || c == CurrencyUSD
}

type CollaborationStatus string

const (
	CollabPending  CollaborationStatus = "pending"
	CollabAccepted CollaborationStatus = "accepted"
	CollabRejected CollaborationStatus = "rejected"
	CollabCanceled CollaborationStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentNotApplicable PaymentStatus = "N/A"
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefunded      PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

const (
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodOnHand       = "on_hand"
)

func ValidPaymentMethod(m string) bool {
	return m == PaymentMethodBankTransfer || m == PaymentMethodOnHand
}

type Event struct {
	ID            uint64           `gorm:"primaryKey" json:"id"`
	Name          string           `gorm:"size:255;not null" json:"name"`
	Description   string           `gorm:"type:text" json:"description"`
	OrganizedByID uint64           `gorm:"not null;index" json:"organized_by"`
	IsFree        bool             `gorm:"not null;default:false" json:"is_free"`
	Fees          *decimal.Decimal `gorm:"type:decimal(10,2)" json:"fees"`
	Currency      string           `gorm:"size:3;not null;default:PKR" json:"currency"`
	CreatedByID   *uint64          `json:"created_by"`
	UpdatedByID   *uint64          `json:"updated_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type EventCollaboration struct {
	ID                       uint64              `gorm:"primaryKey" json:"id"`
	EventID                  uint64              `gorm:"not null;uniqueIndex:uk_event_collab" json:"event"`
	CollaboratingCommunityID uint64              `gorm:"not null;index;uniqueIndex:uk_event_collab" json:"collaborating_community"`
	Status                   CollaborationStatus `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

type EventRegistration struct {
	ID            uint64        `gorm:"primaryKey" json:"id"`
	UserID        uint64        `gorm:"not null;index;uniqueIndex:uk_event_user" json:"user"`
	EventID       uint64        `gorm:"not null;index;uniqueIndex:uk_event_user" json:"event"`
	RegisteredAt  time.Time     `gorm:"autoCreateTime" json:"registered_at"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null;default:'N/A'" json:"payment_status"`
}

type Payment struct {
	ID             uint64          `gorm:"primaryKey" json:"id"`
	RegistrationID uint64          `gorm:"uniqueIndex;not null" json:"registration"`
	PaymentMethod  string          `gorm:"size:20;not null" json:"payment_method"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	ProofOfPayment string          `gorm:"size:255" json:"proof_of_payment"`
	Status         PaymentStatus   `gorm:"size:20;not null;default:pending" json:"status"`
	Note           string          `gorm:"type:text" json:"note"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
