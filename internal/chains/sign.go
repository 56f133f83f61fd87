package chains

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// VerifyPersonalSignature reports whether signatureHex is a personal_sign
// signature of msg made by the account at address.
func VerifyPersonalSignature(address, signatureHex string, msg []byte) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	sig, err := hexutil.Decode(signatureHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}
	// Transform yellow paper V from 27/28 to 0/1
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	recovered, err := crypto.SigToPub(accounts.TextHash(msg), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*recovered) == common.HexToAddress(address)
}
