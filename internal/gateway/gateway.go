package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/EX7EX/SimplRefQ/internal/claim"
	"github.com/EX7EX/SimplRefQ/internal/models"
	"github.com/EX7EX/SimplRefQ/internal/ranking"
	"github.com/EX7EX/SimplRefQ/internal/referral"
	"github.com/EX7EX/SimplRefQ/internal/users"
)

// MembershipGate reports whether a user has joined the required channel. The
// chat transport implements this; the gateway only consumes it.
type MembershipGate interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// MessageSender delivers a reply to a user through the chat transport.
type MessageSender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// Identity is what the chat transport knows about a user at /start.
type Identity struct {
	ID   int64
	Name string
}

type UserService interface {
	Register(ctx context.Context, id int64, name, referralCode string) (users.RegisterResult, error)
	Snapshot(ctx context.Context, id int64) (*users.Snapshot, error)
}

type ClaimService interface {
	ClaimDaily(ctx context.Context, userID int64) (claim.Result, error)
}

type RankingReader interface {
	Rank(ctx context.Context, userID int64) (rank int, ranked bool, err error)
	Leaderboard(ctx context.Context, limit int) ([]ranking.Entry, error)
}

type ReferralStats interface {
	Stats(ctx context.Context, userID int64) (referral.Stats, error)
}

type AddressLister interface {
	Addresses(ctx context.Context, userID int64) ([]*models.WalletAddress, error)
}

// Gateway turns chat actions into service calls and reply text. It owns no
// transport; the bot process plugs in the gate and sender.
type Gateway struct {
	users     UserService
	claims    ClaimService
	rankings  RankingReader
	referrals ReferralStats
	wallets   AddressLister
	gate      MembershipGate
	sender    MessageSender
	logger    *slog.Logger
}

// New assembles a Gateway. The chat transport process owns construction: it
// supplies the MembershipGate and MessageSender bound to its platform
// connection and runs the Gateway for the lifetime of that connection. The
// API server never builds one.
func New(
	usersSvc UserService,
	claims ClaimService,
	rankings RankingReader,
	referrals ReferralStats,
	wallets AddressLister,
	gate MembershipGate,
	sender MessageSender,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		users:     usersSvc,
		claims:    claims,
		rankings:  rankings,
		referrals: referrals,
		wallets:   wallets,
		gate:      gate,
		sender:    sender,
		logger:    logger,
	}
}

// HandleStart runs the /start flow: membership gate, then registration, then
// the optional referral code. A non-member gets the join prompt; that is a
// normal outcome, not an error.
func (g *Gateway) HandleStart(ctx context.Context, identity Identity, referralCode string) (string, error) {
	member, err := g.gate.IsMember(ctx, identity.ID)
	if err != nil {
		return "", fmt.Errorf("membership check: %w", err)
	}
	if !member {
		return "Please join the channel first, then send /start again.", nil
	}

	result, err := g.users.Register(ctx, identity.ID, identity.Name, referralCode)
	if err != nil {
		return "", fmt.Errorf("registering user %d: %w", identity.ID, err)
	}

	var b strings.Builder
	if result.Created {
		fmt.Fprintf(&b, "Welcome, %s! Your account is ready.", displayName(identity))
	} else {
		fmt.Fprintf(&b, "Welcome back, %s!", displayName(identity))
	}
	if referralCode != "" {
		if result.ReferralErr != nil {
			b.WriteString(" The referral code could not be applied.")
		} else {
			b.WriteString(" Your referral has been counted.")
		}
	}
	return b.String(), nil
}

// HandleAction dispatches the action and sends the reply through the
// transport. Delivery is best-effort: a transport failure is logged, not
// propagated, so the chat adapter can retry on its own schedule.
func (g *Gateway) HandleAction(ctx context.Context, userID int64, action Action) error {
	reply, err := g.Dispatch(ctx, userID, action)
	if err != nil {
		return err
	}
	if err := g.sender.Send(ctx, userID, reply); err != nil {
		g.logger.Warn("reply delivery failed", "user_id", userID, "action", action.String(), "error", err)
	}
	return nil
}

// Dispatch builds the reply for one menu action. The switch covers every
// Action value; gateway tests enumerate Actions() against it.
func (g *Gateway) Dispatch(ctx context.Context, userID int64, action Action) (string, error) {
	switch action {
	case ActionInviteFriends:
		return g.inviteReply(ctx, userID)
	case ActionLeaderboard:
		return g.leaderboardReply(ctx)
	case ActionBalance:
		return g.balanceReply(ctx, userID)
	case ActionWallet:
		return g.walletReply(ctx, userID)
	case ActionRanking:
		return g.rankingReply(ctx, userID)
	case ActionDailyRewards:
		return g.dailyRewardReply(ctx, userID)
	default:
		return "", fmt.Errorf("%w: %v", ErrUnknownAction, action)
	}
}

func (g *Gateway) inviteReply(ctx context.Context, userID int64) (string, error) {
	snap, err := g.users.Snapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	stats, err := g.referrals.Stats(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Share your referral code %s with friends!\nDirect referrals: %d\nSecond-level referrals: %d",
		snap.ReferralCode, stats.DirectCount, stats.IndirectCount,
	), nil
}

func (g *Gateway) leaderboardReply(ctx context.Context) (string, error) {
	entries, err := g.rankings.Leaderboard(ctx, 10)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "The leaderboard is empty. Be the first to earn coins!", nil
	}
	var b strings.Builder
	b.WriteString("Top earners:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s - %d coins\n", i+1, e.Name, e.Balance)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (g *Gateway) balanceReply(ctx context.Context, userID int64) (string, error) {
	snap, err := g.users.Snapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("You have %d coins (wallet: %d).", snap.Balance, snap.WalletBalance), nil
}

func (g *Gateway) walletReply(ctx context.Context, userID int64) (string, error) {
	addrs, err := g.wallets.Addresses(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "You have no wallet addresses yet. Create one from the wallet menu.", nil
	}
	var b strings.Builder
	b.WriteString("Your wallet addresses:\n")
	for _, a := range addrs {
		fmt.Fprintf(&b, "%s: %s\n", a.Chain, a.Address)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (g *Gateway) rankingReply(ctx context.Context, userID int64) (string, error) {
	rank, ranked, err := g.rankings.Rank(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ranked {
		return "You are not ranked yet. Earn some coins and check back soon!", nil
	}
	return fmt.Sprintf("You are ranked #%d.", rank), nil
}

func (g *Gateway) dailyRewardReply(ctx context.Context, userID int64) (string, error) {
	result, err := g.claims.ClaimDaily(ctx, userID)
	if err != nil {
		if errors.Is(err, claim.ErrAlreadyClaimed) {
			return "You already claimed today's reward. Come back tomorrow!", nil
		}
		return "", err
	}
	return fmt.Sprintf("Daily reward claimed! You now have %d coins.", result.NewBalance), nil
}

func displayName(id Identity) string {
	if strings.TrimSpace(id.Name) != "" {
		return id.Name
	}
	return fmt.Sprintf("user %d", id.ID)
}
