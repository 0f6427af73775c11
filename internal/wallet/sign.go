package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// signEIP191 signs a personal_sign message.
// Returns a 65-byte signature (R || S || V) with V in {27, 28}.
func signEIP191(key *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	sig, err := crypto.Sign(eip191Hash(message), key)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// VerifyMessage recovers the signer address from an EIP-191 signature.
func VerifyMessage(message, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sig))
	}

	recoverSig := make([]byte, 65)
	copy(recoverSig, sig)
	if recoverSig[64] >= 27 {
		recoverSig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(eip191Hash(message), recoverSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// ConnectChallenge is the message a wallet signs to authorise a session.
func ConnectChallenge(account common.Address, chainID int64, issuedAt string) []byte {
	return []byte(fmt.Sprintf("polkafarm wants you to connect %s on chain %d at %s", account.Hex(), chainID, issuedAt))
}

func eip191Hash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256(append([]byte(prefix), message...))
}
