package models

import (
	"fmt"
	"strings"

	"paladin-guard-backend/internal/chain"
)

// GuardType names one of the seven membership policies.
type GuardType string

const (
	GuardNormalVerification    GuardType = "normal"
	GuardTokenOnly             GuardType = "token_only"
	GuardPaymentOnly           GuardType = "payment"
	GuardPaymentAndToken       GuardType = "payment_and_token"
	GuardNFTOnly               GuardType = "nft_only"
	GuardPaymentAndNFT         GuardType = "payment_and_nft"
	GuardPaymentAndTokenAndNFT GuardType = "payment_and_token_and_nft"
)

// requirements is the single source of truth mapping each policy onto its
// predicate set. Setup collection, verification evaluation and summary text
// all derive from this table; new policies extend the table, not call sites.
var requirements = map[GuardType]struct {
	payment bool
	token   bool
	nft     bool
}{
	GuardNormalVerification:    {},
	GuardTokenOnly:             {token: true},
	GuardPaymentOnly:           {payment: true},
	GuardPaymentAndToken:       {payment: true, token: true},
	GuardNFTOnly:               {nft: true},
	GuardPaymentAndNFT:         {payment: true, nft: true},
	GuardPaymentAndTokenAndNFT: {payment: true, token: true, nft: true},
}

// Valid reports whether t is one of the seven known policies.
func (t GuardType) Valid() bool {
	_, ok := requirements[t]
	return ok
}

// NeedsPayment reports whether the policy requires a payment transaction.
func (t GuardType) NeedsPayment() bool { return requirements[t].payment }

// NeedsToken reports whether the policy requires a fungible-token holding.
func (t GuardType) NeedsToken() bool { return requirements[t].token }

// NeedsNFT reports whether the policy requires a non-fungible holding.
func (t GuardType) NeedsNFT() bool { return requirements[t].nft }

// AllGuardTypes lists every policy, in table order.
func AllGuardTypes() []GuardType {
	return []GuardType{
		GuardNormalVerification,
		GuardTokenOnly,
		GuardPaymentOnly,
		GuardPaymentAndToken,
		GuardNFTOnly,
		GuardPaymentAndNFT,
		GuardPaymentAndTokenAndNFT,
	}
}

// Parameters holds the on-chain values a policy verifies against. Fields are
// populated exactly per the policy's predicate set.
type Parameters struct {
	Chain          chain.Chain `json:"chain"`
	WalletAddress  string      `json:"wallet_address,omitempty"`  // payment receiver
	TxnAmount      float64     `json:"txn_amount,omitempty"`      // native currency units
	TokenAddress   string      `json:"token_address,omitempty"`
	TokensRequired int64       `json:"tokens_required,omitempty"`
	NFTAddress     string      `json:"nft_address,omitempty"`
}

// GovernanceParams references the contract a governance portal verifies
// holders against.
type GovernanceParams struct {
	CA   string `json:"ca"`
	Type string `json:"type"` // "ERC20" or "ERC721"
}

// PortalData is the governance/portal extension attached to
// normal-verification guards.
type PortalData struct {
	Text             string            `json:"text,omitempty"`
	GovernanceParams *GovernanceParams `json:"governance_params,omitempty"`
	VerifiedUsers    []int64           `json:"verified_users,omitempty"`
	TrainingData     string            `json:"training_data,omitempty"`
}

// HasVerifiedUser reports whether the user already passed governance
// verification for this portal.
func (p *PortalData) HasVerifiedUser(userID int64) bool {
	if p == nil {
		return false
	}
	for _, id := range p.VerifiedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Guard gates one chat's membership. Exactly one guard exists per chat.
type Guard struct {
	ChatID     int64       `json:"chat_id"`
	GuardType  GuardType   `json:"guard_type"`
	Parameters Parameters  `json:"parameters"`
	PortalData *PortalData `json:"portal_data,omitempty"`
}

// Validate checks that the parameter fields present are exactly the ones the
// policy requires.
func (g *Guard) Validate() error {
	if !g.GuardType.Valid() {
		return fmt.Errorf("unknown guard type: %q", g.GuardType)
	}
	if g.GuardType == GuardNormalVerification {
		return nil
	}
	if _, err := chain.Parse(string(g.Parameters.Chain)); err != nil {
		return err
	}
	t := g.GuardType
	if t.NeedsPayment() != (g.Parameters.WalletAddress != "" && g.Parameters.TxnAmount > 0) {
		return fmt.Errorf("guard type %s: payment parameters mismatch", t)
	}
	if t.NeedsToken() != (g.Parameters.TokenAddress != "" && g.Parameters.TokensRequired > 0) {
		return fmt.Errorf("guard type %s: token parameters mismatch", t)
	}
	if t.NeedsNFT() != (g.Parameters.NFTAddress != "") {
		return fmt.Errorf("guard type %s: nft parameters mismatch", t)
	}
	return nil
}

// VerifiedTxn records one successful wallet-to-chat verification. Created
// exactly once per (chat, wallet) pair and never mutated.
type VerifiedTxn struct {
	ChatID        int64     `json:"chat_id"`
	UserID        int64     `json:"user_id"`
	WalletAddress string    `json:"wallet_address"`
	TxnHash       string    `json:"txn_hash"`
	GuardType     GuardType `json:"guard_type"`
}

// Prompt renders the verification instructions for the guard's policy.
func (g *Guard) Prompt() string {
	p := g.Parameters
	chainName := strings.ToUpper(string(p.Chain))

	var b strings.Builder
	b.WriteString("Welcome to Paladin\n\n")

	switch {
	case g.GuardType == GuardNormalVerification:
		b.WriteString("Please click the button below to verify your identity and gain access to the requested group.")
		return b.String()
	case g.GuardType.NeedsPayment():
		b.WriteString("🛡 This group is being protected with Pay protection.\n\n")
	case g.GuardType.NeedsToken():
		b.WriteString("🛡 This group is being protected with Token Holdings protection.\n\n")
	default:
		b.WriteString("🛡 This group is being protected with NFT Holdings protection.\n\n")
	}

	b.WriteString("To get the invite link for the group:\n")
	b.WriteString(g.requirementLines())

	if g.GuardType.NeedsPayment() {
		fmt.Fprintf(&b, "\nStep 1: Send %v %s from your wallet to %s.\n", p.TxnAmount, chainName, p.WalletAddress)
	} else {
		fmt.Fprintf(&b, "\nStep 1: Create a 0 %s transaction from your wallet to the same wallet.\n", chainName)
	}
	b.WriteString("Step 2: Confirm the transaction, wait for it to be approved by the network. Then paste only the transaction id/hash in the next message.")
	return b.String()
}

// Summary renders the protection recap shown after setup.
func (g *Guard) Summary() string {
	var b strings.Builder
	b.WriteString("📋 Paladin Protection Parameters\nTo join group:\n")
	b.WriteString(g.requirementLines())
	return b.String()
}

func (g *Guard) requirementLines() string {
	p := g.Parameters
	chainName := strings.ToUpper(string(p.Chain))

	var b strings.Builder
	if g.GuardType.NeedsPayment() {
		fmt.Fprintf(&b, "- User must send %v %s to %s.\n", p.TxnAmount, chainName, p.WalletAddress)
	}
	if g.GuardType.NeedsToken() {
		fmt.Fprintf(&b, "- User wallet must hold %d tokens of %s on %s network.\n", p.TokensRequired, p.TokenAddress, chainName)
	}
	if g.GuardType.NeedsNFT() {
		fmt.Fprintf(&b, "- User wallet must hold an NFT of %s on %s network.\n", p.NFTAddress, chainName)
	}
	return b.String()
}
