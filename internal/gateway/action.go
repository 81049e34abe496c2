package gateway

import (
	"errors"
	"fmt"
)

// Action is a typed chat menu action. Dispatch must cover every value; the
// coverage test enumerates Actions() against it.
type Action int

const (
	ActionInviteFriends Action = iota
	ActionLeaderboard
	ActionBalance
	ActionWallet
	ActionRanking
	ActionDailyRewards
)

var ErrUnknownAction = errors.New("unknown action")

var actionNames = map[Action]string{
	ActionInviteFriends: "invite_friends",
	ActionLeaderboard:   "leaderboard",
	ActionBalance:       "balance",
	ActionWallet:        "wallet",
	ActionRanking:       "ranking",
	ActionDailyRewards:  "daily_rewards",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Actions returns every defined action, in menu order.
func Actions() []Action {
	return []Action{
		ActionInviteFriends,
		ActionLeaderboard,
		ActionBalance,
		ActionWallet,
		ActionRanking,
		ActionDailyRewards,
	}
}

// ParseAction maps a wire name to its Action. Unknown names are rejected, not
// defaulted.
func ParseAction(name string) (Action, error) {
	for action, n := range actionNames {
		if n == name {
			return action, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}
