package service

import "fmt"

const (
	msgWalletAlreadyVerified = "This wallet has already been verified, and link was generated!"
	msgCouldntGenerateLink   = "Paladin could not generate group invite link at the moment.\n\nPlease try contacting the group administrator."
	msgVerificationFailed    = "🔴 Verification failed, please check the transaction hash or try again later."
	msgUseWebVerification    = "Please use the web verification portal to gain access to this group."
	msgStandaloneNoTokens    = "⚠️ You don't have the required tokens in your wallet"
	msgStandaloneNoNFT       = "⚠️ You don't have the required NFT in your wallet"
	msgStandaloneVerified    = "You have been verified successfully, proceed to vote!"
	msgStandaloneFailed      = "⚠️ Couldn't verify the wallet and token holdings, please check the transaction address or try again later!"
	msgNotGovernanceGroup    = "⚠️ The group is not set up for guard or governance!"
)

func chatLinkMessage(link string) string {
	return fmt.Sprintf("✅ Verification Successful\nHere's your join link: %s", link)
}

func doesNotHoldTokenMessage(tokensRequired int64, tokenAddress string) string {
	return fmt.Sprintf("❌ The related wallet does not hold %d TOKENS of %s", tokensRequired, tokenAddress)
}

func doesNotHoldNFTMessage(nftAddress string) string {
	return fmt.Sprintf("❌ The related wallet does not hold an NFT of %s", nftAddress)
}
