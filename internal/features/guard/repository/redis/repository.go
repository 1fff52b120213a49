package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "paladin-guard-backend/internal/common/errors"
	"paladin-guard-backend/internal/features/guard/models"
	"paladin-guard-backend/internal/features/guard/repository"
)

const (
	keyGuard        = "guard:%d"
	keyGuardsByType = "guards:type:%s"
	keyTxn          = "verified_txn:%d:%s"
	keyTxnsByChat   = "verified_txns:%d"
)

type guardRepository struct {
	client *redis.Client
}

func NewGuardRepository(client *redis.Client) repository.GuardRepository {
	return &guardRepository{client: client}
}

func (r *guardRepository) Create(ctx context.Context, guard *models.Guard) error {
	if err := guard.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid guard")
	}

	key := fmt.Sprintf(keyGuard, guard.ChatID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return apperrors.NewDatabaseError("guard exists check", err)
	}
	if exists > 0 {
		return apperrors.New(apperrors.ErrCodeGuardExists, fmt.Sprintf("Guard already exists for chat %d", guard.ChatID))
	}

	data, err := json.Marshal(guard)
	if err != nil {
		return apperrors.NewDatabaseError("guard marshal", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, fmt.Sprintf(keyGuardsByType, guard.GuardType), guard.ChatID)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewDatabaseError("guard create", err)
	}
	return nil
}

func (r *guardRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Guard, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(keyGuard, chatID)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewGuardNotFoundError(chatID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("guard get", err)
	}

	var guard models.Guard
	if err := json.Unmarshal(data, &guard); err != nil {
		return nil, apperrors.NewDatabaseError("guard unmarshal", err)
	}
	return &guard, nil
}

func (r *guardRepository) ListByType(ctx context.Context, guardType models.GuardType) ([]*models.Guard, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(keyGuardsByType, guardType)).Result()
	if err != nil {
		return nil, apperrors.NewDatabaseError("guard list by type", err)
	}

	guards := make([]*models.Guard, 0, len(ids))
	for _, id := range ids {
		chatID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		guard, err := r.GetByChatID(ctx, chatID)
		if err != nil {
			if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsNotFound() {
				continue
			}
			return nil, err
		}
		guards = append(guards, guard)
	}
	return guards, nil
}

func (r *guardRepository) AppendVerifiedUser(ctx context.Context, chatID, userID int64) error {
	guard, err := r.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	if guard.PortalData == nil {
		guard.PortalData = &models.PortalData{}
	}
	if guard.PortalData.HasVerifiedUser(userID) {
		return nil
	}
	guard.PortalData.VerifiedUsers = append(guard.PortalData.VerifiedUsers, userID)
	return r.save(ctx, guard)
}

func (r *guardRepository) UpdateTokensRequired(ctx context.Context, chatID int64, tokensRequired int64) error {
	guard, err := r.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	guard.Parameters.TokensRequired = tokensRequired
	return r.save(ctx, guard)
}

func (r *guardRepository) save(ctx context.Context, guard *models.Guard) error {
	data, err := json.Marshal(guard)
	if err != nil {
		return apperrors.NewDatabaseError("guard marshal", err)
	}
	if err := r.client.Set(ctx, fmt.Sprintf(keyGuard, guard.ChatID), data, 0).Err(); err != nil {
		return apperrors.NewDatabaseError("guard save", err)
	}
	return nil
}

type verifiedTxnRepository struct {
	client *redis.Client
}

func NewVerifiedTxnRepository(client *redis.Client) repository.VerifiedTxnRepository {
	return &verifiedTxnRepository{client: client}
}

// Wallet keys are stored verbatim. The EVM adapter reports addresses
// lowercased, so ETH lookups stay case-insensitive; Solana base58
// addresses are case-sensitive and must not be folded.
func (r *verifiedTxnRepository) Create(ctx context.Context, txn *models.VerifiedTxn) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return apperrors.NewDatabaseError("txn marshal", err)
	}

	// SetNX keeps the record create-once even if two attempts race.
	ok, err := r.client.SetNX(ctx, fmt.Sprintf(keyTxn, txn.ChatID, txn.WalletAddress), data, 0).Result()
	if err != nil {
		return apperrors.NewDatabaseError("txn create", err)
	}
	if !ok {
		return apperrors.New(apperrors.ErrCodeWalletReused, "wallet already verified for this chat")
	}
	if err := r.client.SAdd(ctx, fmt.Sprintf(keyTxnsByChat, txn.ChatID), txn.WalletAddress).Err(); err != nil {
		return apperrors.NewDatabaseError("txn index", err)
	}
	return nil
}

func (r *verifiedTxnRepository) FindByWallet(ctx context.Context, chatID int64, walletAddress string) (*models.VerifiedTxn, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(keyTxn, chatID, walletAddress)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("txn get", err)
	}

	var txn models.VerifiedTxn
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, apperrors.NewDatabaseError("txn unmarshal", err)
	}
	return &txn, nil
}

func (r *verifiedTxnRepository) ListByChat(ctx context.Context, chatID int64) ([]*models.VerifiedTxn, error) {
	wallets, err := r.client.SMembers(ctx, fmt.Sprintf(keyTxnsByChat, chatID)).Result()
	if err != nil {
		return nil, apperrors.NewDatabaseError("txn list", err)
	}

	txns := make([]*models.VerifiedTxn, 0, len(wallets))
	for _, wallet := range wallets {
		txn, err := r.FindByWallet(ctx, chatID, wallet)
		if err != nil {
			return nil, err
		}
		if txn != nil {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

func (r *verifiedTxnRepository) Delete(ctx context.Context, chatID int64, walletAddress string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, fmt.Sprintf(keyTxn, chatID, walletAddress))
	pipe.SRem(ctx, fmt.Sprintf(keyTxnsByChat, chatID), walletAddress)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewDatabaseError("txn delete", err)
	}
	return nil
}
