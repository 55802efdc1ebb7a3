package service

import (
	"context"

	"xp-server/internal/domain/account"
)

// BalanceService 残高関連のドメインサービス
// クリエイターのエコシステム内ではクリエイタースコープ残高とプラットフォーム残高の
// 両方が利用でき、クリエイタースコープを優先して消費する
type BalanceService struct {
	accountRepo account.AccountRepository
}

// NewBalanceService 新しいBalanceServiceを作成
func NewBalanceService(accountRepo account.AccountRepository) *BalanceService {
	return &BalanceService{
		accountRepo: accountRepo,
	}
}

// SpendableInEcosystem クリエイターのエコシステム内で消費可能な合計残高を取得
func (s *BalanceService) SpendableInEcosystem(ctx context.Context, userID string, creatorScope account.Scope) (int64, error) {
	var total int64

	creatorAcc, err := s.accountRepo.FindByUserIDAndScope(ctx, userID, creatorScope)
	if err != nil && err != account.ErrAccountNotFound {
		return 0, err
	}
	if creatorAcc != nil {
		total += creatorAcc.Current()
	}

	platformAcc, err := s.accountRepo.FindByUserIDAndScope(ctx, userID, account.ScopePlatform)
	if err != nil && err != account.ErrAccountNotFound {
		return 0, err
	}
	if platformAcc != nil {
		total += platformAcc.Current()
	}

	return total, nil
}

// HasSufficientBalance 指定された金額の残高があるかチェック（クリエイタースコープ優先で計算）
func (s *BalanceService) HasSufficientBalance(ctx context.Context, userID string, creatorScope account.Scope, amount int64) (bool, error) {
	creatorAcc, err := s.accountRepo.FindByUserIDAndScope(ctx, userID, creatorScope)
	if err != nil && err != account.ErrAccountNotFound {
		return false, err
	}

	remainingAmount := amount
	if creatorAcc != nil {
		if creatorAcc.Current() >= remainingAmount {
			return true, nil
		}
		remainingAmount -= creatorAcc.Current()
	}

	platformAcc, err := s.accountRepo.FindByUserIDAndScope(ctx, userID, account.ScopePlatform)
	if err != nil {
		if err == account.ErrAccountNotFound {
			return false, nil
		}
		return false, err
	}

	return platformAcc.Current() >= remainingAmount, nil
}
