package apps

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// StakingApp values the pool's delegated stake plus unclaimed reward as a
// single reward-token entry.
type StakingApp struct {
	reader      StakingReader
	poolID      common.Hash
	rewardToken common.Address
}

// NewStakingApp wires the staking registry reader.
func NewStakingApp(reader StakingReader, poolID common.Hash, rewardToken common.Address) *StakingApp {
	return &StakingApp{reader: reader, poolID: poolID, rewardToken: rewardToken}
}

// Balances returns one (rewardToken, stake + unclaimedReward) entry when
// stake is positive, nothing otherwise.
func (s *StakingApp) Balances(ctx context.Context, pool common.Address) ([]types.AppBalance, error) {
	stake, err := s.reader.TotalStake(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to query total stake: %w", err)
	}
	if !stake.IsPositive() {
		return nil, nil
	}
	reward, err := s.reader.DelegatorRewardBalance(ctx, s.poolID, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to query delegator reward: %w", err)
	}
	return []types.AppBalance{{Token: s.rewardToken, Amount: stake.Add(reward)}}, nil
}
