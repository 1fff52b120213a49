package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paladin-guard-backend/internal/features/guard/models"
)

func governanceGuard(chatID int64, contractType string) *models.Guard {
	return &models.Guard{
		ChatID:    chatID,
		GuardType: models.GuardNormalVerification,
		PortalData: &models.PortalData{
			GovernanceParams: &models.GovernanceParams{CA: "0xGov", Type: contractType},
		},
	}
}

func TestStandaloneVerifyGrantsAndPromotes(t *testing.T) {
	guards := newFakeGuardRepo(governanceGuard(1, "ERC20"))
	resolver := &fakeResolver{wallet: "0xabc", tokenHolders: map[string]bool{"0xabc": true}}
	messenger := &fakeMessenger{}
	svc := NewService(guards, newFakeTxnRepo(), resolver, messenger)

	outcome := svc.StandaloneVerify(context.Background(), 1, 7, "0xhash")
	assert.Equal(t, StatusGranted, outcome.Status)
	assert.Equal(t, msgStandaloneVerified, outcome.Message)
	assert.Equal(t, []int64{7}, messenger.promotions)
	assert.Equal(t, "✓", messenger.promoteTitle)

	guard, err := guards.GetByChatID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, guard.PortalData.HasVerifiedUser(7))

	// Retry appends the user only once.
	outcome = svc.StandaloneVerify(context.Background(), 1, 7, "0xhash2")
	assert.Equal(t, StatusGranted, outcome.Status)
	guard, err = guards.GetByChatID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, guard.PortalData.VerifiedUsers)
}

func TestStandaloneVerifyDeniesWithoutTokens(t *testing.T) {
	guards := newFakeGuardRepo(governanceGuard(1, "ERC20"))
	resolver := &fakeResolver{wallet: "0xabc"}
	svc := NewService(guards, newFakeTxnRepo(), resolver, &fakeMessenger{})

	outcome := svc.StandaloneVerify(context.Background(), 1, 7, "0xhash")
	assert.Equal(t, StatusDenied, outcome.Status)
	assert.Equal(t, msgStandaloneNoTokens, outcome.Message)
}

func TestStandaloneVerifyNFTContract(t *testing.T) {
	guards := newFakeGuardRepo(governanceGuard(1, "ERC721"))
	resolver := &fakeResolver{wallet: "0xabc", nftHolders: map[string]bool{"0xabc": true}}
	messenger := &fakeMessenger{}
	svc := NewService(guards, newFakeTxnRepo(), resolver, messenger)

	outcome := svc.StandaloneVerify(context.Background(), 1, 7, "0xhash")
	assert.Equal(t, StatusGranted, outcome.Status)

	resolver.nftHolders = map[string]bool{}
	outcome = svc.StandaloneVerify(context.Background(), 1, 8, "0xhash2")
	assert.Equal(t, StatusDenied, outcome.Status)
	assert.Equal(t, msgStandaloneNoNFT, outcome.Message)
}

func TestStandaloneVerifyPromotionFailureIsNotFatal(t *testing.T) {
	guards := newFakeGuardRepo(governanceGuard(1, "ERC20"))
	resolver := &fakeResolver{wallet: "0xabc", tokenHolders: map[string]bool{"0xabc": true}}
	messenger := &fakeMessenger{promoteErr: assert.AnError}
	svc := NewService(guards, newFakeTxnRepo(), resolver, messenger)

	outcome := svc.StandaloneVerify(context.Background(), 1, 7, "0xhash")
	assert.Equal(t, StatusGranted, outcome.Status)

	guard, err := guards.GetByChatID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, guard.PortalData.HasVerifiedUser(7))
}

func TestStandaloneVerifyRejectsNonGovernanceGroups(t *testing.T) {
	tests := []struct {
		name  string
		guard *models.Guard
	}{
		{"token guard", tokenGuard(1)},
		{"portal without governance params", &models.Guard{
			ChatID:     1,
			GuardType:  models.GuardNormalVerification,
			PortalData: &models.PortalData{},
		}},
		{"no portal data", &models.Guard{
			ChatID:    1,
			GuardType: models.GuardNormalVerification,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newFakeGuardRepo(tt.guard), newFakeTxnRepo(), &fakeResolver{}, &fakeMessenger{})
			outcome := svc.StandaloneVerify(context.Background(), 1, 7, "0xhash")
			assert.Equal(t, StatusError, outcome.Status)
			assert.Equal(t, msgNotGovernanceGroup, outcome.Message)
		})
	}
}
