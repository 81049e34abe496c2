package models

import (
	"fmt"
	"time"
)

// User is the per-user document. The identifier is assigned by the chat
// platform and is immutable. Balance and wallet balance are integer coin
// amounts and never go negative; referred_by is set at most once.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Balance       int64     `json:"balance"`
	WalletBalance int64     `json:"wallet_balance"`
	ReferralCode  string    `json:"referral_code"`
	ReferralCount int       `json:"referral_count"`
	ReferredBy    *int64    `json:"referred_by,omitempty"`
	LastClaimDate *string   `json:"last_claim_date,omitempty"`
	Rank          *int      `json:"rank,omitempty"`
	ChannelJoined bool      `json:"channel_joined"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PlaceholderName is used when registration carries no display name.
func PlaceholderName(id int64) string {
	return fmt.Sprintf("user_%d", id)
}

// ReferralCodeFor derives the referral code owned by a user.
func ReferralCodeFor(id int64) string {
	return fmt.Sprintf("ref_%d", id)
}

// ClaimDateLayout is the canonical format of last_claim_date. The column is
// text because the legacy store held free-form strings; anything that does not
// parse with this layout is treated as never-claimed.
const ClaimDateLayout = "2006-01-02"
